package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/randengine"
)

func TestDeterministicPerSeed(t *testing.T) {
	e1 := randengine.New(43)
	e2 := randengine.New(43)
	for i := 0; i < 100; i++ {
		assert.Equal(t, e1.Float64(), e2.Float64())
	}
}

func TestUniform(t *testing.T) {
	e := randengine.New(1)
	for i := 0; i < 1000; i++ {
		v := e.Uniform(0.6, 30)
		assert.GreaterOrEqual(t, v, 0.6)
		assert.Less(t, v, 30.0)
	}
}

func TestPTrue(t *testing.T) {
	e := randengine.New(2)
	for i := 0; i < 100; i++ {
		assert.False(t, e.PTrue(0))
	}
	count := 0
	for i := 0; i < 1000; i++ {
		if e.PTrue(0.5) {
			count++
		}
	}
	assert.Greater(t, count, 400)
	assert.Less(t, count, 600)
}
