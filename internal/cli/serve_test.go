package cli

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepSchedule time.Duration

func (s stepSchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(s)) }

type neverSchedule struct{}

func (neverSchedule) Next(time.Time) time.Time { return time.Time{} }

func TestParseSchedule(t *testing.T) {
	sched, err := parseSchedule("0 3 * * *")
	require.NoError(t, err)
	from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.Local), sched.Next(from))

	_, err = parseSchedule("@daily")
	assert.NoError(t, err)

	_, err = parseSchedule("0 0 3 * * *")
	assert.Error(t, err)
	_, err = parseSchedule("soon")
	assert.Error(t, err)
}

func TestRunScheduleRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		runSchedule(ctx, stepSchedule(5*time.Millisecond), zerolog.Nop(), func(context.Context) {
			if runs.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("schedule loop did not stop")
	}
	assert.Equal(t, int32(3), runs.Load())
}

func TestRunScheduleStopsWithoutActivations(t *testing.T) {
	called := false
	runSchedule(context.Background(), neverSchedule{}, zerolog.Nop(), func(context.Context) { called = true })
	assert.False(t, called)
}
