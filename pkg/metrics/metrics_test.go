package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	d := timer.Duration()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
}

func TestObserveDuration(t *testing.T) {
	timer := NewTimer()
	assert.NotPanics(t, func() {
		timer.ObserveDuration(ReconciliationDuration)
	})
}

func TestObserveDurationVec(t *testing.T) {
	timer := NewTimer()
	assert.NotPanics(t, func() {
		timer.ObserveDurationVec(OperationDuration, "create_group")
	})
}

func TestHandlerNotNil(t *testing.T) {
	assert.NotNil(t, Handler())
}
