package synthetic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity/tls"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/synthetic"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/config"
)

func testPrograms() map[string][]tls.Phase {
	return map[string][]tls.Phase{
		"a": {
			{Index: 0, State: "GGrr"},
			{Index: 1, State: "yyrr"},
			{Index: 2, State: "rrGG"},
			{Index: 3, State: "rryy"},
		},
		"b": {
			{Index: 0, State: "Grr"},
			{Index: 1, State: "rGr"},
			{Index: 2, State: "rrG"},
		},
		"allRed": {
			{Index: 0, State: "rrrr"},
		},
	}
}

func TestNextGeneratesValidObservations(t *testing.T) {
	greens := map[string][]int{
		"a": {0, 2},
		"b": {0, 1, 2},
	}
	src := synthetic.New(testPrograms(), config.SyntheticSource{Seed: 7})
	for tick := 0; tick < 200; tick++ {
		obs, err := src.Next()
		require.NoError(t, err)
		// 没有绿灯相位的路口不生成观测
		assert.NotContains(t, obs.Lights, "allRed")
		for id, info := range obs.Lights {
			require.NotNil(t, info.CurrentPhase)
			assert.Contains(t, greens[id], *info.CurrentPhase)
			assert.GreaterOrEqual(t, info.TimeToNextSwitch, 0.0)
			assert.GreaterOrEqual(t, info.TimeInPhase, 0.0)
			assert.LessOrEqual(t, info.TimeInPhase, 90.0)
			for phaseID, w := range obs.WaitingVehicles[id] {
				assert.Contains(t, greens[id], phaseID)
				assert.GreaterOrEqual(t, w, 0.0)
				assert.Less(t, w, 60.0)
			}
		}
	}
	assert.NoError(t, src.Close())
}

func TestNextDeterministicPerSeed(t *testing.T) {
	s1 := synthetic.New(testPrograms(), config.SyntheticSource{Seed: 42})
	s2 := synthetic.New(testPrograms(), config.SyntheticSource{Seed: 42})
	for tick := 0; tick < 50; tick++ {
		o1, err := s1.Next()
		require.NoError(t, err)
		o2, err := s2.Next()
		require.NoError(t, err)
		assert.Equal(t, o1, o2)
	}
}

func TestNextRespectsMaxWaiting(t *testing.T) {
	src := synthetic.New(testPrograms(), config.SyntheticSource{Seed: 1, MaxWaiting: 5})
	for tick := 0; tick < 100; tick++ {
		obs, err := src.Next()
		require.NoError(t, err)
		for _, waiting := range obs.WaitingVehicles {
			for _, w := range waiting {
				assert.Less(t, w, 5.0)
			}
		}
	}
}
