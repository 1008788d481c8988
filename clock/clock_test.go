package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/clock"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/config"
)

func TestClock(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 10, Total: 5, Interval: 2})
	assert.Equal(t, int32(10), c.InternalStep)
	assert.Equal(t, 20.0, c.T)
	assert.False(t, c.Done())

	for i := 0; i < 5; i++ {
		c.Tick()
	}
	assert.Equal(t, int32(15), c.InternalStep)
	assert.Equal(t, 30.0, c.T)
	assert.True(t, c.Done())

	c.Init()
	assert.Equal(t, int32(10), c.InternalStep)
}

func TestClockString(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 0, Total: 100, Interval: 1})
	for i := 0; i < 3725; i++ {
		c.Tick()
	}
	assert.Equal(t, "01:02:05", c.String())

	hour, minute, second := c.GetHourMinuteSecond()
	assert.Equal(t, 1, hour)
	assert.Equal(t, 2, minute)
	assert.Equal(t, 5.0, second)
}
