package tls_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity/tls"
)

func TestPhaseIsGreen(t *testing.T) {
	// 含通行字符且无过渡字符
	assert.True(t, tls.Phase{Index: 0, State: "GGrr"}.IsGreen())
	assert.True(t, tls.Phase{Index: 0, State: "rrgg"}.IsGreen())
	// 含过渡字符
	assert.False(t, tls.Phase{Index: 0, State: "GGry"}.IsGreen())
	assert.False(t, tls.Phase{Index: 0, State: "yyyy"}.IsGreen())
	// 无通行字符
	assert.False(t, tls.Phase{Index: 0, State: "rrrr"}.IsGreen())
	assert.False(t, tls.Phase{Index: 0, State: ""}.IsGreen())
}

func TestNewTLSExtractsSortedGreenPhases(t *testing.T) {
	// 目录乱序给入，绿灯相位应按编号升序
	tl, err := tls.NewTLS("a", []tls.Phase{
		{Index: 4, State: "rrGG"},
		{Index: 1, State: "yyrr"},
		{Index: 2, State: "GGrr"},
		{Index: 3, State: "rryy"},
		{Index: 0, State: "rrrr"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, tl.GreenPhases())
	assert.Equal(t, "a", tl.ID())
}

func TestNewTLSFailsWithoutGreenPhase(t *testing.T) {
	// 没有任何绿灯相位属于配置错误，构造必须失败
	_, err := tls.NewTLS("broken", []tls.Phase{
		{Index: 0, State: "rrrr"},
		{Index: 1, State: "yyyy"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tls.ErrNoGreenPhase)

	_, err = tls.NewTLS("empty", nil)
	assert.ErrorIs(t, err, tls.ErrNoGreenPhase)
}

func TestActionCountsSnapshot(t *testing.T) {
	tl, err := tls.NewTLS("a", []tls.Phase{{Index: 0, State: "G"}})
	require.NoError(t, err)

	counts := tl.ActionCounts()
	assert.Empty(t, counts)
	// 快照是拷贝，修改不影响内部状态
	counts[0] = 42
	assert.Empty(t, tl.ActionCounts())
}
