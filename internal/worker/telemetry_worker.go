package worker

import (
	"context"
	"sync/atomic"
	"time"

	"telemetrygen/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State of the run loop.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

const cycleTimeout = 60 * time.Second

// TelemetryWorker runs one generation cycle per interval until its context
// is cancelled. A cycle that has started always runs to completion.
type TelemetryWorker struct {
	service  service.TelemetryService
	interval time.Duration
	clock    clockwork.Clock

	state  atomic.Int32
	cycles atomic.Int64
}

func NewTelemetryWorker(service service.TelemetryService, interval time.Duration, clock clockwork.Clock) *TelemetryWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TelemetryWorker{
		service:  service,
		interval: interval,
		clock:    clock,
	}
}

// Run blocks until ctx is cancelled. Failed cycles are logged and retried
// after the full interval.
func (w *TelemetryWorker) Run(ctx context.Context) {
	w.state.Store(int32(StateRunning))
	log.Info().Dur("interval", w.interval).Msg("telemetry worker started")

	defer func() {
		w.state.Store(int32(StateStopped))
		log.Info().Int64("cycles", w.cycles.Load()).Msg("telemetry worker stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		w.generateTelemetry(ctx)

		select {
		case <-w.clock.After(w.interval):
		case <-ctx.Done():
			return
		}
	}
}

func (w *TelemetryWorker) generateTelemetry(parent context.Context) {
	// the interrupt must not cut a cycle short
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), cycleTimeout)
	defer cancel()

	w.cycles.Add(1)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("generation cycle panicked")
		}
	}()

	if _, err := w.service.GenerateTelemetry(ctx); err != nil {
		log.Error().Err(err).Msg("generation cycle failed")
	}
}

func (w *TelemetryWorker) State() State {
	return State(w.state.Load())
}

// Cycles returns how many cycles have been started.
func (w *TelemetryWorker) Cycles() int64 {
	return w.cycles.Load()
}
