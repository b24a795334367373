package easydrm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrchestrator(monitors map[uint32]*Monitor[struct{}]) *Orchestrator[struct{}] {
	o := &Orchestrator[struct{}]{
		monitors:            monitors,
		refreshGroups:        make(map[uint32][]uint32),
		fastestGroupPending:  make(map[uint32]bool),
	}
	o.updateRefreshGroups()
	return o
}

func TestRefreshGroupsEmptyWithNoMonitors(t *testing.T) {
	o := testOrchestrator(map[uint32]*Monitor[struct{}]{})
	assert.False(t, o.fastestGroupPresent)
	assert.False(t, o.ShouldUpdate())
}

func TestRefreshGroupsFastestIsMaxHz(t *testing.T) {
	o := testOrchestrator(map[uint32]*Monitor[struct{}]{
		1: {defaultMode: testMode(1920, 1080, 60)},
		2: {defaultMode: testMode(3840, 2160, 120)},
	})
	assert.True(t, o.fastestGroupPresent)
	assert.Equal(t, uint32(120), o.fastestGroupRefresh)
	assert.Len(t, o.fastestGroupPending, 1)
	assert.True(t, o.fastestGroupPending[2])
}

func TestShouldUpdatePulsesOnceWhenFastestGroupFullyCommitted(t *testing.T) {
	o := testOrchestrator(map[uint32]*Monitor[struct{}]{
		1: {defaultMode: testMode(1920, 1080, 60)},
		2: {defaultMode: testMode(3840, 2160, 120)},
	})

	require.False(t, o.ShouldUpdate(), "should not pulse before the fastest monitor commits")

	o.markFastGroupCommit(2)

	assert.True(t, o.ShouldUpdate(), "should pulse exactly once after the fastest group is fully committed")
	assert.False(t, o.ShouldUpdate(), "should not pulse again until the next cycle completes")
}

func TestMarkFastGroupCommitIgnoresConnectorOutsideFastestGroup(t *testing.T) {
	o := testOrchestrator(map[uint32]*Monitor[struct{}]{
		1: {defaultMode: testMode(1920, 1080, 60)},
		2: {defaultMode: testMode(3840, 2160, 120)},
	})

	o.markFastGroupCommit(1) // 60Hz monitor, not in the fastest group

	assert.False(t, o.ShouldUpdate())
}

func TestRefreshRateGroupsReturnsIndependentCopy(t *testing.T) {
	o := testOrchestrator(map[uint32]*Monitor[struct{}]{
		1: {defaultMode: testMode(1920, 1080, 60)},
	})

	groups := o.RefreshRateGroups()
	groups[60][0] = 999

	assert.Equal(t, uint32(1), o.refreshGroups[60][0], "mutating the returned view must not affect orchestrator state")
}
