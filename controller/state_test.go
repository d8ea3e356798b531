package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from    RunState
		sig     Signal
		want    RunState
		wantErr bool
	}{
		{Idle, SignalStart, Running, false},
		{Stopped, SignalStart, Running, false},
		{Running, SignalStart, Running, true},
		{Completed, SignalStart, Running, false},
		{Running, SignalStop, Stopped, false},
		{Idle, SignalStop, Idle, true},
		{Stopped, SignalStop, Stopped, true},
		{Running, SignalFinish, Completed, false},
		{Stopped, SignalFinish, Stopped, true},
		{Idle, SignalReset, Idle, false},
		{Running, SignalReset, Idle, false},
		{Stopped, SignalReset, Idle, false},
		{Completed, SignalReset, Idle, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.sig.String(), func(t *testing.T) {
			got, err := Transition(tt.from, tt.sig)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "RunState(9)", RunState(9).String())
	assert.Equal(t, "Signal(9)", Signal(9).String())
}
