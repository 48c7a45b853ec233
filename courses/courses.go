package courses

// CompletionThreshold is the fraction of a video's duration past which a
// viewing counts as completed.
const CompletionThreshold = 0.9

// Course is the catalog entry for a single video course.
type Course struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency,omitempty"`
	VideoCount   int    `json:"video_count,omitempty"`
}

// Video is one playable item within a course.
type Video struct {
	ID              string  `json:"id"`
	CourseID        string  `json:"course_id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	StreamURL       string  `json:"stream_url,omitempty"`
	Position        int     `json:"position,omitempty"` // ordering within the course
}

// PurchaseStatus is the server-confirmed entitlement for one course. It is
// fetched fresh per check and never cached.
type PurchaseStatus struct {
	HasPurchased     bool    `json:"hasPurchased"`
	IsRefundEligible bool    `json:"isRefundEligible"`
	Reason           *string `json:"reason,omitempty"`
	RefundAmount     int64   `json:"refund_amount,omitempty"`
	OriginalAmount   int64   `json:"original_amount,omitempty"`
}

// ProgressSample is a point-in-time snapshot of playback position, pushed
// to the backend for resume/analytics purposes. Samples are best-effort
// and never retried.
type ProgressSample struct {
	CourseID        string  `json:"course_id"`
	VideoID         string  `json:"video_id"`
	ProgressSeconds float64 `json:"progress_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsCompleted     bool    `json:"is_completed"`
}

// NewProgressSample builds a sample for the given playback position,
// marking it completed once position reaches 90% of the duration. The
// boundary is inclusive: position == 0.9*duration counts as completed.
func NewProgressSample(courseID, videoID string, position, duration float64) ProgressSample {
	return ProgressSample{
		CourseID:        courseID,
		VideoID:         videoID,
		ProgressSeconds: position,
		DurationSeconds: duration,
		IsCompleted:     duration > 0 && position >= CompletionThreshold*duration,
	}
}
