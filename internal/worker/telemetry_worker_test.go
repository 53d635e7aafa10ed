package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"telemetrygen/internal/models"
	"telemetrygen/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService reports each call on calls and returns err.
type fakeService struct {
	calls chan context.Context
	err   error
}

func newFakeService(err error) *fakeService {
	return &fakeService{calls: make(chan context.Context, 16), err: err}
}

func (s *fakeService) GenerateTelemetry(ctx context.Context) (*service.TelemetryBatch, error) {
	s.calls <- ctx
	if s.err != nil {
		return nil, s.err
	}
	return &service.TelemetryBatch{}, nil
}

func (s *fakeService) LastOutcome() *models.CycleOutcome { return nil }

func waitCall(t *testing.T, s *fakeService) context.Context {
	t.Helper()
	select {
	case ctx := <-s.calls:
		return ctx
	case <-time.After(2 * time.Second):
		t.Fatal("expected a generation cycle")
		return nil
	}
}

func assertNoCall(t *testing.T, s *fakeService) {
	t.Helper()
	select {
	case <-s.calls:
		t.Fatal("unexpected generation cycle")
	case <-time.After(50 * time.Millisecond):
	}
}

func startWorker(t *testing.T, svc service.TelemetryService, clock clockwork.Clock) (*TelemetryWorker, context.CancelFunc, <-chan struct{}) {
	t.Helper()

	w := NewTelemetryWorker(svc, 5*time.Minute, clock)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(cancel)
	return w, cancel, done
}

func TestTelemetryWorker_RunsEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newFakeService(nil)
	w, cancel, done := startWorker(t, svc, clock)

	waitCall(t, svc)
	clock.BlockUntil(1)
	assert.Equal(t, StateRunning, w.State())

	clock.Advance(5*time.Minute - time.Second)
	assertNoCall(t, svc)

	clock.Advance(time.Second)
	waitCall(t, svc)
	clock.BlockUntil(1)
	assert.Equal(t, int64(2), w.Cycles())

	cancel()
	<-done
	assert.Equal(t, StateStopped, w.State())
}

func TestTelemetryWorker_ErrorWaitsFullPeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newFakeService(errors.New("connection refused"))
	w, cancel, done := startWorker(t, svc, clock)

	waitCall(t, svc)
	clock.BlockUntil(1)

	clock.Advance(time.Minute)
	assertNoCall(t, svc)

	clock.Advance(4 * time.Minute)
	waitCall(t, svc)
	clock.BlockUntil(1)

	assert.Equal(t, StateRunning, w.State())

	cancel()
	<-done
	assert.Equal(t, StateStopped, w.State())
	assert.Equal(t, int64(2), w.Cycles())
}

// blockingService holds each cycle open until release is closed.
type blockingService struct {
	started chan context.Context
	release chan struct{}
}

func (s *blockingService) GenerateTelemetry(ctx context.Context) (*service.TelemetryBatch, error) {
	s.started <- ctx
	<-s.release
	return &service.TelemetryBatch{}, ctx.Err()
}

func (s *blockingService) LastOutcome() *models.CycleOutcome { return nil }

func TestTelemetryWorker_InterruptDuringCycle(t *testing.T) {
	svc := &blockingService{started: make(chan context.Context, 1), release: make(chan struct{})}
	w, cancel, done := startWorker(t, svc, clockwork.NewFakeClock())

	cycleCtx := <-svc.started
	cancel()

	assert.NoError(t, cycleCtx.Err())
	assert.Equal(t, StateRunning, w.State())

	close(svc.release)
	<-done

	assert.Equal(t, StateStopped, w.State())
	assert.Equal(t, int64(1), w.Cycles())
}

func TestTelemetryWorker_CancelledBeforeStart(t *testing.T) {
	svc := newFakeService(nil)
	w := NewTelemetryWorker(svc, time.Minute, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.Run(ctx)

	assert.Equal(t, StateStopped, w.State())
	assert.Zero(t, w.Cycles())
	require.Len(t, svc.calls, 0)
}

// panickingService panics on its first call and then behaves like fakeService.
type panickingService struct {
	*fakeService
	panicked bool
}

func (s *panickingService) GenerateTelemetry(ctx context.Context) (*service.TelemetryBatch, error) {
	if !s.panicked {
		s.panicked = true
		s.calls <- ctx
		panic("unexpected failure in cycle")
	}
	return s.fakeService.GenerateTelemetry(ctx)
}

func TestTelemetryWorker_PanicInCycleIsRecovered(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := &panickingService{fakeService: newFakeService(nil)}
	w, cancel, done := startWorker(t, svc, clock)

	waitCall(t, svc.fakeService)
	clock.BlockUntil(1)
	assert.Equal(t, StateRunning, w.State())

	clock.Advance(5 * time.Minute)
	waitCall(t, svc.fakeService)
	clock.BlockUntil(1)
	assert.Equal(t, int64(2), w.Cycles())

	cancel()
	<-done
	assert.Equal(t, StateStopped, w.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
