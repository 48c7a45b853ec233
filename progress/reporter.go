// Package progress pushes playback position samples to the backend while
// a video is being watched. Reporting is best-effort: failures are logged
// and swallowed, never retried, and never surfaced to the viewer.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/learnstream/go-course-client/api"
	"github.com/learnstream/go-course-client/courses"
	"github.com/learnstream/go-course-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultInterval = 10 * time.Second

// Playback exposes the state of the active video element.
type Playback interface {
	// Position returns the current playback position and the total
	// duration, both in seconds.
	Position() (position, duration float64)
	// Ended is closed when playback reaches the end of the media.
	Ended() <-chan struct{}
}

// ProgressRepo pushes a single sample to the backend.
type ProgressRepo interface {
	UpdateProgress(ctx context.Context, sample courses.ProgressSample) error
}

// Reporter samples the active video on a fixed interval and on playback
// end. At most one video is watched at a time: starting a new watch
// cancels the previous one.
type Reporter struct {
	repo           ProgressRepo
	sessions       session.Store
	onUnauthorized func()
	interval       time.Duration
	log            zerolog.Logger

	lock   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// ReporterOption defines a function type to modify the Reporter instance.
type ReporterOption func(*Reporter)

// WithInterval overrides the 10 second sampling interval (primarily for
// testing).
func WithInterval(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		r.interval = d
	}
}

// WithLogger sets the logger for swallowed push failures.
func WithLogger(log zerolog.Logger) ReporterOption {
	return func(r *Reporter) {
		r.log = log
	}
}

// WithUnauthorizedFunc sets the callback fired when a push returns 401,
// after the session has been cleared. The embedding view uses it to
// redirect to sign-up.
func WithUnauthorizedFunc(fn func()) ReporterOption {
	return func(r *Reporter) {
		r.onUnauthorized = fn
	}
}

func NewReporter(repo ProgressRepo, sessions session.Store, options ...ReporterOption) (*Reporter, error) {
	if repo == nil {
		return nil, errors.New("[progress.NewReporter] progress repo is required")
	}
	if sessions == nil {
		return nil, errors.New("[progress.NewReporter] session store is required")
	}

	r := &Reporter{
		repo:           repo,
		sessions:       sessions,
		interval:       defaultInterval,
		log:            zerolog.Nop(),
		onUnauthorized: func() {},
	}

	for _, opt := range options {
		opt(r)
	}

	return r, nil
}

// Watch starts reporting for the given video, cancelling any previous
// watch first. The watch ends when ctx is cancelled, playback ends, the
// session disappears, or a completed sample has been delivered.
func (r *Reporter) Watch(ctx context.Context, courseID, videoID string, playback Playback) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.stopLocked()

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go r.run(watchCtx, courseID, videoID, playback, done)
}

// Stop cancels the active watch, if any, and waits for its goroutine to
// exit. Safe to call on teardown regardless of state.
func (r *Reporter) Stop() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stopLocked()
}

func (r *Reporter) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
}

func (r *Reporter) run(ctx context.Context, courseID, videoID string, playback Playback, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-playback.Ended():
			r.report(ctx, courseID, videoID, playback)
			return
		case <-ticker.C:
			if stop := r.report(ctx, courseID, videoID, playback); stop {
				return
			}
		}
	}
}

// report emits one sample. It returns true when reporting must stop: the
// session is gone, the backend said 401, or a completed sample has been
// delivered (a video completes at most once per watch).
func (r *Reporter) report(ctx context.Context, courseID, videoID string, playback Playback) (stop bool) {
	if _, err := r.sessions.Get(); err != nil {
		// Token revoked mid-playback: stop silently, never throw into
		// the view.
		return true
	}

	position, duration := playback.Position()
	sample := courses.NewProgressSample(courseID, videoID, position, duration)

	if err := r.repo.UpdateProgress(ctx, sample); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = r.sessions.Clear()
			r.onUnauthorized()
			return true
		}
		r.log.Warn().Err(err).
			Str("course_id", courseID).
			Str("video_id", videoID).
			Msg("progress update dropped")
		return false
	}

	return sample.IsCompleted
}
