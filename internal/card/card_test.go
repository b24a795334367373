package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAtomicPropsPreservesFirstSeenOrder(t *testing.T) {
	props := []atomicProp{
		{objID: 10, propID: 1, value: 100},
		{objID: 20, propID: 2, value: 200},
		{objID: 10, propID: 3, value: 300},
	}

	objs, countProps, propIDs, propValues := groupAtomicProps(props)

	require.Equal(t, []uint32{10, 20}, objs)
	require.Equal(t, []uint32{2, 1}, countProps)
	assert.Equal(t, []uint32{1, 3, 2}, propIDs)
	assert.Equal(t, []uint64{100, 300, 200}, propValues)
}

func TestGroupAtomicPropsEmpty(t *testing.T) {
	objs, countProps, propIDs, propValues := groupAtomicProps(nil)
	assert.Empty(t, objs)
	assert.Empty(t, countProps)
	assert.Empty(t, propIDs)
	assert.Empty(t, propValues)
}

func TestAtomicRequestEmpty(t *testing.T) {
	r := NewAtomicRequest()
	assert.True(t, r.Empty())
	r.Add(1, 2, 3)
	assert.False(t, r.Empty())
}

func TestModeSize(t *testing.T) {
	m := Mode{Width: 1920, Height: 1080, VRefresh: 60}
	w, h := m.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
	assert.Equal(t, uint32(60), m.VRefresh)
}

func TestModeBlobIsModeInfoSized(t *testing.T) {
	m := Mode{Width: 1920, Height: 1080, VRefresh: 60}
	blob := ModeBlob(m)
	assert.Len(t, blob, 68) // struct drm_mode_modeinfo is 68 bytes on every arch
}

func TestModeEqualityIsStructural(t *testing.T) {
	a := Mode{Width: 1920, Height: 1080, VRefresh: 60}
	b := Mode{Width: 1920, Height: 1080, VRefresh: 60}
	c := Mode{Width: 1280, Height: 720, VRefresh: 60}
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestClientCapConstantsMatchUAPI(t *testing.T) {
	// From linux/drm.h: DRM_CLIENT_CAP_UNIVERSAL_PLANES = 2,
	// DRM_CLIENT_CAP_ATOMIC = 3. DRM_CLIENT_CAP_ATOMIC must never be
	// confused with DRM_CLIENT_CAP_WRITEBACK_CONNECTORS (5) — negotiating
	// the wrong capability silently breaks every later MODE_ATOMIC ioctl.
	assert.EqualValues(t, 2, drmClientCapUniversalPlanes)
	assert.EqualValues(t, 3, drmClientCapAtomic)
}
