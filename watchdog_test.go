package modbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkWatchdogTransitions(t *testing.T) {
	w := NewLinkWatchdog(4)

	w.Observe(IterationResult{Iteration: 0, Outcome: OutcomeOK})
	w.Observe(IterationResult{Iteration: 1, Outcome: OutcomeOK})
	w.Observe(IterationResult{Iteration: 2, Outcome: OutcomeTransportError, Err: &TransportError{Err: errDeadline}})
	w.Observe(IterationResult{Iteration: 3, Outcome: OutcomeTransportError, Err: &TransportError{Err: errDeadline}})
	w.Observe(IterationResult{Iteration: 4, Outcome: OutcomeOK})

	// Transitions only: up, down, up. Repeated outcomes stay silent.
	var types []LinkEventType
	for len(w.Events()) > 0 {
		types = append(types, (<-w.Events()).Type)
	}
	assert.Equal(t, []LinkEventType{LinkEventUp, LinkEventDown, LinkEventUp}, types)

	stats := w.Stats()
	assert.True(t, stats.Up)
	assert.False(t, stats.LastDown.IsZero())
	assert.GreaterOrEqual(t, stats.TotalDowntime, time.Duration(0))
}

func TestLinkWatchdogExceptionCountsAsUp(t *testing.T) {
	w := NewLinkWatchdog(0)

	w.Observe(IterationResult{Outcome: OutcomeSlaveError, Err: SlaveError{Function: FuncReadWriteMultipleRegisters, Exception: ExceptionIllegalDataAddress}})

	stats := w.Stats()
	assert.True(t, stats.Up)
	evt := <-w.Events()
	assert.Equal(t, LinkEventUp, evt.Type)
}

func TestLinkWatchdogDownState(t *testing.T) {
	w := NewLinkWatchdog(0)

	w.Observe(IterationResult{Outcome: OutcomeNoResponse, Err: ErrNoResponse})

	stats := w.Stats()
	assert.False(t, stats.Up)
	assert.ErrorIs(t, stats.LastDownErr, ErrNoResponse)
	assert.False(t, stats.LastDown.IsZero())
}

func TestLinkWatchdogWithRunner(t *testing.T) {
	store := NewMemoryImageWithValues([]uint16{1, 2})
	transport := newLoopbackTransport(store)
	transport.faultOn = func(exchange int) error {
		if exchange == 1 {
			return context.DeadlineExceeded
		}
		return nil
	}

	w := NewLinkWatchdog(8)
	runner := NewRunner(transport, RunnerConfig{
		UnitID:     1,
		ReadStart:  0,
		ReadCount:  2,
		Iterations: 3,
	}, WithReporter(w.Reporter()))

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.OK)
	assert.Equal(t, 1, stats.TransportErrors)

	var types []LinkEventType
	for len(w.Events()) > 0 {
		types = append(types, (<-w.Events()).Type)
	}
	assert.Equal(t, []LinkEventType{LinkEventUp, LinkEventDown, LinkEventUp}, types)
	assert.True(t, w.Stats().Up)
}
