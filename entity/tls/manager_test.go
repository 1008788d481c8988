package tls_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity/tls"
)

func testPrograms() map[string][]tls.Phase {
	return map[string][]tls.Phase{
		"a": {
			{Index: 0, State: "GGrr"},
			{Index: 1, State: "yyrr"},
			{Index: 2, State: "rrGG"},
		},
		"b": {
			{Index: 0, State: "Grr"},
			{Index: 1, State: "rGr"},
			{Index: 2, State: "rrG"},
		},
	}
}

func newTestManager(t *testing.T) *tls.TLSManager {
	t.Helper()
	m := tls.NewManager(tls.DefaultParams())
	require.NoError(t, m.Init(testPrograms()))
	return m
}

func TestManagerInit(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, 2, m.Len())

	a, err := m.GetOrError("a")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, a.GreenPhases())

	_, err = m.GetOrError("missing")
	assert.Error(t, err)
}

func TestManagerInitFailsFastOnEmptyCatalog(t *testing.T) {
	programs := testPrograms()
	programs["dead"] = []tls.Phase{{Index: 0, State: "rrrr"}}

	m := tls.NewManager(tls.DefaultParams())
	err := m.Init(programs)
	require.Error(t, err)
	assert.ErrorIs(t, err, tls.ErrNoGreenPhase)
}

func TestDecideNextPhase(t *testing.T) {
	m := newTestManager(t)
	current := 0
	obs := &entity.Observation{
		Lights: map[string]*entity.LightInfo{
			"a": {CurrentPhase: &current, TimeToNextSwitch: 0, TimeInPhase: 10},
			// b还有很久才切相，本tick跳过
			"b": {CurrentPhase: &current, TimeToNextSwitch: 12, TimeInPhase: 3},
		},
		WaitingVehicles: map[string]map[int]float64{
			"a": {0: 5, 2: 50},
		},
	}

	decision := m.DecideNextPhase(obs)
	require.NotNil(t, decision)
	require.Contains(t, decision, "a")
	assert.NotContains(t, decision, "b")
	assert.Equal(t, 2, decision["a"].PhaseID)
	assert.Equal(t, 22.7, decision["a"].Duration)

	// 诊断计数只为被选中的路口相位递增
	counts := m.ActionCounts()
	assert.Equal(t, int64(1), counts["a"][2])
	assert.Empty(t, counts["b"])
}

func TestDecideNextPhaseNilWhenNobodyActs(t *testing.T) {
	m := newTestManager(t)

	// 观测中没有任何受控路口：返回nil而不是空map
	decision := m.DecideNextPhase(&entity.Observation{
		Lights:          map[string]*entity.LightInfo{},
		WaitingVehicles: map[string]map[int]float64{},
	})
	assert.Nil(t, decision)
}

func TestDecideNextPhaseDeterministic(t *testing.T) {
	obs := &entity.Observation{
		Lights: map[string]*entity.LightInfo{
			"a": {TimeToNextSwitch: 0.2, TimeInPhase: 40},
			"b": {TimeToNextSwitch: 0, TimeInPhase: 70},
		},
		WaitingVehicles: map[string]map[int]float64{
			"a": {0: 8, 2: 8},
			"b": {0: 1, 1: 30, 2: 7},
		},
	}

	first := newTestManager(t).DecideNextPhase(obs)
	require.NotNil(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, newTestManager(t).DecideNextPhase(obs))
	}
}
