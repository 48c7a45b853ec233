package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/learnstream/go-course-client/api"
	"github.com/learnstream/go-course-client/chat"
	"github.com/learnstream/go-course-client/checkout"
	"github.com/learnstream/go-course-client/gate"
	"github.com/learnstream/go-course-client/internal/config"
	"github.com/learnstream/go-course-client/internal/utils"
	"github.com/learnstream/go-course-client/progress"
	"github.com/learnstream/go-course-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const usage = `usage: coursectl <command> [flags]

commands:
  signup    create an account and sign in
  signin    sign in with existing credentials
  signout   destroy the local session
  whoami    show the signed-in user
  catalog   list available courses
  course    show one course and your purchase status
  watch     play a course video (simulated) and report progress
  buy       purchase a course
  chat      open a support chat
`

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(config.New(), log); err != nil {
		log.Fatal().Err(err).Msg("coursectl failed")
	}
}

func run(c config.Config, log zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("command required")
	}

	store, err := session.NewFileStore(c.GetDataFolder())
	if err != nil {
		return errors.Wrap(err, "[run] session.NewFileStore")
	}

	client, err := api.New(c.GetAPIBaseURL(), store, api.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "[run] api.New")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{config: c, log: log, sessions: store, client: client}

	switch args[0] {
	case "signup":
		return a.signUp(ctx, args[1:])
	case "signin":
		return a.signIn(ctx, args[1:])
	case "signout":
		return client.SignOut()
	case "whoami":
		return a.whoAmI(ctx)
	case "catalog":
		return a.catalog(ctx)
	case "course":
		return a.course(ctx, args[1:])
	case "watch":
		return a.watch(ctx, args[1:])
	case "buy":
		return a.buy(ctx, args[1:])
	case "chat":
		return a.chat(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return errors.Errorf("unknown command %q", args[0])
	}
}

type app struct {
	config   config.Config
	log      zerolog.Logger
	sessions session.Store
	client   *api.Client
}

// clearStaleSession empties the local token slot when the backend
// rejected the token, so the next invocation starts unauthenticated
// instead of re-sending a dead bearer token.
func (a *app) clearStaleSession(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		_ = a.sessions.Clear()
		return errors.New("session expired, sign in again")
	}
	return err
}

func (a *app) signUp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	_ = fs.Parse(args)

	s, err := a.client.SignUp(ctx, *email, *password, *first, *last)
	if err != nil {
		return err
	}
	fmt.Printf("signed up as %s\n", s.User.DisplayName())
	return nil
}

func (a *app) signIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	s, err := a.client.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", s.User.DisplayName())
	return nil
}

func (a *app) whoAmI(ctx context.Context) error {
	user, err := a.client.CheckAuth(ctx)
	if err != nil {
		return a.clearStaleSession(err)
	}
	fmt.Printf("%s <%s>\n", user.DisplayName(), user.Email)
	return nil
}

func (a *app) catalog(ctx context.Context) error {
	list, err := a.client.Courses(ctx)
	if err != nil {
		return a.clearStaleSession(err)
	}
	for _, course := range list {
		fmt.Printf("%-24s %-40s %d.%02d %s\n",
			course.ID, course.Title, course.PriceCents/100, course.PriceCents%100, course.Currency)
	}
	return nil
}

func (a *app) course(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("course", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	_ = fs.Parse(args)

	course, err := a.client.Course(ctx, *courseID)
	if err != nil {
		return a.clearStaleSession(err)
	}
	fmt.Printf("%s\n%s\n", course.Title, course.Description)

	status, err := a.client.PurchaseStatus(ctx, *courseID)
	if err != nil {
		return a.clearStaleSession(err)
	}
	if status.HasPurchased {
		fmt.Println("purchased: yes")
		if status.IsRefundEligible {
			fmt.Printf("refund available: %d of %d\n", status.RefundAmount, status.OriginalAmount)
		}
	} else {
		fmt.Printf("purchased: no (%s)\n", utils.Value(status.Reason))
	}
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	videoID := fs.String("video", "", "video id (default: first in course)")
	_ = fs.Parse(args)

	g, err := gate.New(gate.Repos{Auth: a.client, Entitlements: a.client}, a.sessions)
	if err != nil {
		return err
	}

	decision := g.Check(ctx, *courseID, fmt.Sprintf("/courses/%s/learn", *courseID))
	switch decision.State {
	case gate.StateGranted:
	case gate.StateDenied:
		return errors.Errorf("access denied, visit %s", decision.Redirect)
	default:
		return errors.Wrap(decision.Err, "[watch] access check")
	}

	videos, err := a.client.CourseVideos(ctx, *courseID)
	if err != nil {
		return a.clearStaleSession(err)
	}
	if len(videos) == 0 {
		return errors.New("course has no videos")
	}
	video := videos[0]
	for _, v := range videos {
		if v.ID == *videoID {
			video = v
		}
	}

	displayAppname(a.config.GetAppName())
	fmt.Printf("playing %q (%.0fs)\n", video.Title, video.DurationSeconds)

	reporter, err := progress.NewReporter(a.client, a.sessions,
		progress.WithLogger(a.log),
		progress.WithUnauthorizedFunc(func() {
			a.log.Warn().Msg("session expired, stopping playback reporting")
		}),
	)
	if err != nil {
		return err
	}
	defer reporter.Stop()

	playback := newSimulatedPlayback(video.DurationSeconds)
	defer playback.stop()
	reporter.Watch(ctx, *courseID, video.ID, playback)

	select {
	case <-playback.Ended():
		fmt.Println("playback finished")
		// Give the final progress sample a moment to leave.
		time.Sleep(time.Second)
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (a *app) buy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	name := fs.String("name", "", "billing name")
	email := fs.String("email", "", "billing email")
	address := fs.String("address", "", "billing address line")
	city := fs.String("city", "", "billing city")
	postcode := fs.String("postcode", "", "billing postal code")
	country := fs.String("country", "", "billing country code")
	_ = fs.Parse(args)

	svc, err := checkout.NewService(a.client)
	if err != nil {
		return err
	}

	billing := checkout.BillingDetails{
		Name:         *name,
		Email:        *email,
		AddressLine1: *address,
		City:         *city,
		PostalCode:   *postcode,
		Country:      *country,
	}

	verification, err := svc.Purchase(ctx, *courseID, billing, terminalPaymentWidget)
	if err != nil {
		return a.clearStaleSession(err)
	}
	if !verification.Success {
		return errors.Errorf("payment not verified: %s", verification.Message)
	}
	fmt.Println("purchase complete")
	return nil
}

// terminalPaymentWidget stands in for the gateway's browser widget: it
// shows the order and reads the gateway's receipt fields from stdin.
func terminalPaymentWidget(ctx context.Context, order checkout.Order) (checkout.PaymentReceipt, error) {
	fmt.Printf("order %s: %d.%02d %s (gateway key %s)\n",
		order.OrderID, order.AmountCents/100, order.AmountCents%100, order.Currency, order.GatewayKey)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("payment id: ")
	if !scanner.Scan() {
		return checkout.PaymentReceipt{}, errors.New("payment cancelled")
	}
	paymentID := scanner.Text()
	fmt.Print("signature: ")
	if !scanner.Scan() {
		return checkout.PaymentReceipt{}, errors.New("payment cancelled")
	}
	return checkout.PaymentReceipt{
		OrderID:   order.OrderID,
		PaymentID: paymentID,
		Signature: scanner.Text(),
	}, nil
}

func (a *app) chat(ctx context.Context) error {
	client, err := chat.Dial(ctx, a.config.GetChatURL(), a.sessions, chat.WithLogger(a.log))
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return errors.New("sign in before starting a chat")
		}
		return a.clearStaleSession(err)
	}
	defer func() { _ = client.Close() }()

	go func() {
		for {
			msg, err := client.Receive()
			if err != nil {
				return
			}
			fmt.Printf("[%s] %s\n", msg.Sender, msg.Body)
		}
	}()

	fmt.Println("connected to support, type your message (ctrl-d to leave)")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		if _, err := client.Send(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
