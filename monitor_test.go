package easydrm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testMode(w, h uint16, hz uint32) Mode {
	return Mode{Width: w, Height: h, VRefresh: hz}
}

func TestMonitorActiveModeDefaultsWithNoOverride(t *testing.T) {
	def := testMode(1920, 1080, 60)
	m := &Monitor[struct{}]{defaultMode: def}

	assert.Equal(t, def, m.ActiveMode())
	_, hasReq := m.RequestedMode()
	assert.False(t, hasReq)
}

func TestMonitorActiveModeUsesOverrideWhenSet(t *testing.T) {
	def := testMode(1920, 1080, 60)
	req := testMode(1280, 720, 60)
	m := &Monitor[struct{}]{defaultMode: def}

	m.SetMode(&req)

	assert.Equal(t, req, m.ActiveMode())
	got, hasReq := m.RequestedMode()
	assert.True(t, hasReq)
	assert.Equal(t, req, got)
}

func TestMonitorNeedsModeSetBeforeFirstCommit(t *testing.T) {
	m := &Monitor[struct{}]{defaultMode: testMode(1920, 1080, 60)}
	assert.True(t, m.NeedsModeSet(), "a monitor with no current mode always needs a mode-set")
}

func TestMonitorNeedsModeSetFalseAfterMatchingCommit(t *testing.T) {
	def := testMode(1920, 1080, 60)
	m := &Monitor[struct{}]{defaultMode: def}
	committed := def
	m.currentMode = &committed

	assert.False(t, m.NeedsModeSet())
}

func TestMonitorNeedsModeSetTrueAfterModeChangeRequest(t *testing.T) {
	def := testMode(1920, 1080, 60)
	m := &Monitor[struct{}]{defaultMode: def}
	committed := def
	m.currentMode = &committed

	req := testMode(1280, 720, 60)
	m.SetMode(&req)

	assert.True(t, m.NeedsModeSet())
}

func TestMonitorCurrentModeUnsetBeforeAnyCommit(t *testing.T) {
	m := &Monitor[struct{}]{defaultMode: testMode(1920, 1080, 60)}
	_, ok := m.CurrentMode()
	assert.False(t, ok)
}

func TestMonitorSizeReflectsActiveMode(t *testing.T) {
	def := testMode(1920, 1080, 60)
	m := &Monitor[struct{}]{defaultMode: def}
	w, h := m.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
}
