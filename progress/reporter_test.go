package progress_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/learnstream/go-course-client/api"
	"github.com/learnstream/go-course-client/courses"
	"github.com/learnstream/go-course-client/progress"
	"github.com/learnstream/go-course-client/session"
	"github.com/learnstream/go-course-client/session/storefakes"
	"github.com/stretchr/testify/require"
)

const (
	testCourseID = "course-1"
	testVideoID  = "video-1"
	testToken    = "opaque-token-123"

	tickInterval = 5 * time.Millisecond
	waitTimeout  = 2 * time.Second
)

type fakePlayback struct {
	lock     sync.Mutex
	position float64
	duration float64
	ended    chan struct{}
}

func newFakePlayback(position, duration float64) *fakePlayback {
	return &fakePlayback{position: position, duration: duration, ended: make(chan struct{})}
}

func (p *fakePlayback) Position() (float64, float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.position, p.duration
}

func (p *fakePlayback) Ended() <-chan struct{} {
	return p.ended
}

func (p *fakePlayback) end() {
	close(p.ended)
}

type fakeProgressRepo struct {
	lock    sync.Mutex
	samples []courses.ProgressSample
	err     error
	notify  chan courses.ProgressSample
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{notify: make(chan courses.ProgressSample, 64)}
}

func (f *fakeProgressRepo) UpdateProgress(ctx context.Context, sample courses.ProgressSample) error {
	f.lock.Lock()
	f.samples = append(f.samples, sample)
	err := f.err
	f.lock.Unlock()

	f.notify <- sample
	return err
}

func (f *fakeProgressRepo) setErr(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.err = err
}

func (f *fakeProgressRepo) completedCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	n := 0
	for _, s := range f.samples {
		if s.IsCompleted {
			n++
		}
	}
	return n
}

func waitForSample(t *testing.T, repo *fakeProgressRepo) courses.ProgressSample {
	t.Helper()
	select {
	case s := <-repo.notify:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a progress sample")
		return courses.ProgressSample{}
	}
}

func requireNoSample(t *testing.T, repo *fakeProgressRepo, within time.Duration) {
	t.Helper()
	select {
	case s := <-repo.notify:
		t.Fatalf("unexpected progress sample: %+v", s)
	case <-time.After(within):
	}
}

type reporterFixture struct {
	sessions *storefakes.FakeStore
	repo     *fakeProgressRepo
	reporter *progress.Reporter

	unauthorizedLock  sync.Mutex
	unauthorizedCalls int
}

func setupReporterFixture(t *testing.T, options ...progress.ReporterOption) *reporterFixture {
	t.Helper()

	f := &reporterFixture{
		sessions: storefakes.NewFakeStore(),
		repo:     newFakeProgressRepo(),
	}
	require.NoError(t, f.sessions.Set(testToken, nil))

	opts := append([]progress.ReporterOption{
		progress.WithInterval(tickInterval),
		progress.WithUnauthorizedFunc(func() {
			f.unauthorizedLock.Lock()
			f.unauthorizedCalls++
			f.unauthorizedLock.Unlock()
		}),
	}, options...)

	reporter, err := progress.NewReporter(f.repo, f.sessions, opts...)
	require.NoError(t, err)
	f.reporter = reporter
	t.Cleanup(reporter.Stop)

	return f
}

func TestReporter_EmitsSamplesOnInterval(t *testing.T) {
	f := setupReporterFixture(t)
	playback := newFakePlayback(10, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)

	first := waitForSample(t, f.repo)
	require.Equal(t, testCourseID, first.CourseID)
	require.Equal(t, testVideoID, first.VideoID)
	require.Equal(t, float64(10), first.ProgressSeconds)
	require.Equal(t, float64(100), first.DurationSeconds)
	require.False(t, first.IsCompleted)

	second := waitForSample(t, f.repo)
	require.False(t, second.IsCompleted)
}

func TestReporter_CompletedSampleSentExactlyOnce(t *testing.T) {
	f := setupReporterFixture(t)
	playback := newFakePlayback(91, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)

	s := waitForSample(t, f.repo)
	require.True(t, s.IsCompleted)

	// Playback ending after the completed sample must not duplicate it.
	playback.end()
	requireNoSample(t, f.repo, 10*tickInterval)
	require.Equal(t, 1, f.repo.completedCount())
}

func TestReporter_PlaybackEndFiresFinalSample(t *testing.T) {
	// Hour-long interval: only the ended event can trigger a sample.
	f := setupReporterFixture(t, progress.WithInterval(time.Hour))
	playback := newFakePlayback(95, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)
	playback.end()

	s := waitForSample(t, f.repo)
	require.True(t, s.IsCompleted)
	requireNoSample(t, f.repo, 50*time.Millisecond)
}

func TestReporter_StopsSilentlyWithoutSession(t *testing.T) {
	f := setupReporterFixture(t)
	require.NoError(t, f.sessions.Clear())
	playback := newFakePlayback(10, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)

	requireNoSample(t, f.repo, 10*tickInterval)
}

func TestReporter_UnauthorizedClearsSessionAndStops(t *testing.T) {
	f := setupReporterFixture(t)
	f.repo.setErr(&api.Error{Status: http.StatusUnauthorized, Message: "unauthorized"})
	playback := newFakePlayback(10, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)

	waitForSample(t, f.repo)
	requireNoSample(t, f.repo, 10*tickInterval)

	_, err := f.sessions.Get()
	require.ErrorIs(t, err, session.ErrNoSession, "token slot must be empty after a 401")

	f.unauthorizedLock.Lock()
	defer f.unauthorizedLock.Unlock()
	require.Equal(t, 1, f.unauthorizedCalls)
}

func TestReporter_OtherFailuresAreSwallowed(t *testing.T) {
	f := setupReporterFixture(t)
	f.repo.setErr(api.ErrUnreachable)
	playback := newFakePlayback(10, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)

	waitForSample(t, f.repo)
	waitForSample(t, f.repo) // keeps trying, no backoff, no retry of lost samples

	_, err := f.sessions.Get()
	require.NoError(t, err, "network failures must not destroy the session")
}

func TestReporter_SwitchingVideosCancelsPriorWatch(t *testing.T) {
	f := setupReporterFixture(t, progress.WithInterval(time.Hour))
	first := newFakePlayback(10, 100)
	second := newFakePlayback(50, 200)

	f.reporter.Watch(context.Background(), testCourseID, "video-1", first)
	f.reporter.Watch(context.Background(), testCourseID, "video-2", second)

	// The first playback ending must be ignored: its watch was cancelled.
	first.end()
	requireNoSample(t, f.repo, 50*time.Millisecond)

	second.end()
	s := waitForSample(t, f.repo)
	require.Equal(t, "video-2", s.VideoID)
	require.Equal(t, float64(50), s.ProgressSeconds)
}

func TestReporter_StopCancelsWatch(t *testing.T) {
	f := setupReporterFixture(t, progress.WithInterval(time.Hour))
	playback := newFakePlayback(10, 100)

	f.reporter.Watch(context.Background(), testCourseID, testVideoID, playback)
	f.reporter.Stop()

	playback.end()
	requireNoSample(t, f.repo, 50*time.Millisecond)
}
