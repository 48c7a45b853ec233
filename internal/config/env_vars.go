package config

import (
	"os"
)

const (
	appNameVar    = "APP_NAME"
	apiBaseURLVar = "API_BASE_URL"
	chatURLVar    = "CHAT_URL"
	folderEnvVar  = "FOLDER"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "coursectl")
}

// GetAPIBaseURL returns the base URL of the course platform backend.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8080")
}

// GetChatURL returns the support chat websocket endpoint. Defaults to the
// chat path on the API base URL.
func (e EnvVars) GetChatURL() string {
	return GetEnv(chatURLVar, e.GetAPIBaseURL()+"/api/support/chat")
}

// GetDataFolder returns where the session token and cached profile live.
func (EnvVars) GetDataFolder() string {
	if folder := os.Getenv(folderEnvVar); folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return home + "/.coursectl"
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
