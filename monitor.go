package easydrm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/hyprside/easydrm/internal/card"
	"github.com/hyprside/easydrm/internal/egl"
	"github.com/hyprside/easydrm/internal/gbmdevice"
	"github.com/hyprside/easydrm/internal/glesfn"
)

// ContextConstructor builds a caller-defined per-monitor context value from
// the monitor's loaded GL function table and its chosen mode's pixel size.
// It is invoked once during Monitor setup, both at initial discovery and on
// every later hot-plug.
type ContextConstructor[T any] func(gl *glesfn.Table, width, height int) T

// ResourceAllocation is the set of DRM objects the Orchestrator decided a
// connector may use, before Monitor setup runs.
type ResourceAllocation struct {
	CrtcID       uint32
	PrimaryPlane uint32
	CursorPlane  uint32 // 0 if none
}

// Monitor owns one connector's full display pipeline: its allocated CRTC
// and planes, its GLES Context, the three-state mode machine, and the
// caller's per-monitor context value of type T.
type Monitor[T any] struct {
	connectorID  uint32
	crtcID       uint32
	primaryPlane uint32
	cursorPlane  uint32 // 0 if none

	defaultMode   Mode
	requestedMode *Mode
	currentMode   *Mode

	connectorProps map[string]card.PropertyInfo
	crtcProps      map[string]card.PropertyInfo
	planeProps     map[string]card.PropertyInfo

	gles *GLESContext

	canRender  bool
	wasDrawn   bool
	firstFrame bool

	userContext T

	previousBO      *gbmdevice.BufferObject
	previousFenceFD int // -1 if none
	previousFence   *egl.Fence
}

// setupMonitor performs the connector setup sequence: connected-state
// check, default mode selection, GLES Context construction, the caller's
// context constructor, and property-descriptor caching.
func setupMonitor[T any](c *card.Card, gbmDev *gbmdevice.Device, connID uint32, alloc ResourceAllocation, build ContextConstructor[T]) (*Monitor[T], error) {
	info, err := c.Connector(connID)
	if err != nil {
		return nil, fmt.Errorf("fetch connector %d: %w", connID, err)
	}
	if info.Connection != card.Connected {
		return nil, ErrNotConnected
	}
	if len(info.Modes) == 0 {
		return nil, ErrNoModesFound
	}
	defaultMode := info.Modes[0]

	gles, err := newGLESContext(gbmDev, defaultMode)
	if err != nil {
		return nil, err
	}

	w, h := defaultMode.Size()
	userCtx := build(gles.GL(), w, h)

	connProps, _, err := c.ObjectProperties(connID, card.ObjConnector)
	if err != nil {
		gles.Close()
		return nil, fmt.Errorf("cache connector properties: %w", err)
	}
	crtcProps, _, err := c.ObjectProperties(alloc.CrtcID, card.ObjCrtc)
	if err != nil {
		gles.Close()
		return nil, fmt.Errorf("cache CRTC properties: %w", err)
	}
	planeProps, _, err := c.ObjectProperties(alloc.PrimaryPlane, card.ObjPlane)
	if err != nil {
		gles.Close()
		return nil, fmt.Errorf("cache primary plane properties: %w", err)
	}

	return &Monitor[T]{
		connectorID:     connID,
		crtcID:          alloc.CrtcID,
		primaryPlane:    alloc.PrimaryPlane,
		cursorPlane:     alloc.CursorPlane,
		defaultMode:     defaultMode,
		connectorProps:  connProps,
		crtcProps:       crtcProps,
		planeProps:      planeProps,
		gles:            gles,
		canRender:       true,
		wasDrawn:        false,
		firstFrame:      true,
		userContext:     userCtx,
		previousFenceFD: -1,
	}, nil
}

// ConnectorID returns this monitor's connector identity.
func (m *Monitor[T]) ConnectorID() uint32 { return m.connectorID }

// CRTCID returns the allocated CRTC's identity.
func (m *Monitor[T]) CRTCID() uint32 { return m.crtcID }

// PrimaryPlane returns the allocated primary plane's identity.
func (m *Monitor[T]) PrimaryPlane() uint32 { return m.primaryPlane }

// CursorPlane returns the allocated cursor plane's identity, or 0 if none
// was available at allocation time.
func (m *Monitor[T]) CursorPlane() uint32 { return m.cursorPlane }

// DefaultMode returns the connector's preferred mode.
func (m *Monitor[T]) DefaultMode() Mode { return m.defaultMode }

// CurrentMode returns the mode most recently committed to hardware, or
// false if no commit has occurred yet.
func (m *Monitor[T]) CurrentMode() (Mode, bool) {
	if m.currentMode == nil {
		return Mode{}, false
	}
	return *m.currentMode, true
}

// RequestedMode returns the caller's mode override, if any.
func (m *Monitor[T]) RequestedMode() (Mode, bool) {
	if m.requestedMode == nil {
		return Mode{}, false
	}
	return *m.requestedMode, true
}

// ActiveMode is the requested mode if one has been set, else the default
// mode.
func (m *Monitor[T]) ActiveMode() Mode {
	if m.requestedMode != nil {
		return *m.requestedMode
	}
	return m.defaultMode
}

// SetMode records a mode override, taking effect on the next commit. A nil
// mode clears the override, reverting ActiveMode to the default.
func (m *Monitor[T]) SetMode(mode *Mode) { m.requestedMode = mode }

// NeedsModeSet reports whether the next commit must perform a mode-set: the
// monitor has never been committed (current_mode is unset), or the active
// mode no longer matches the mode last committed to hardware.
func (m *Monitor[T]) NeedsModeSet() bool {
	if m.currentMode == nil {
		return true
	}
	return *m.currentMode != m.ActiveMode()
}

// CanRender reports whether this monitor is ready to accept a new frame:
// true at setup and again after a page-flip event for its CRTC, false
// immediately after a commit that drew this monitor.
func (m *Monitor[T]) CanRender() bool { return m.canRender }

// Context returns a pointer to the caller-supplied per-monitor context
// value.
func (m *Monitor[T]) Context() *T { return &m.userContext }

// GL returns the loaded GLES function table for this monitor's context.
func (m *Monitor[T]) GL() *glesfn.Table { return m.gles.GL() }

// GetProcAddress resolves a GL/EGL symbol through this monitor's EGL
// display.
func (m *Monitor[T]) GetProcAddress(name string) unsafe.Pointer {
	return m.gles.GetProcAddress(name)
}

// Size returns the monitor's active mode's pixel dimensions.
func (m *Monitor[T]) Size() (int, int) { return m.ActiveMode().Size() }

// MakeCurrent makes this monitor's GLES Context current and marks it dirty
// for the next commit batch.
func (m *Monitor[T]) MakeCurrent() error {
	if err := m.gles.MakeCurrent(); err != nil {
		return err
	}
	m.wasDrawn = true
	return nil
}

// ClearModeState is a reserved hook for callers implementing their own
// virtual-terminal focus-loss handling (e.g. a VT switch away from this
// process). It currently performs no action of its own; it exists so such
// a caller has a defined place to call into.
func (m *Monitor[T]) ClearModeState() {}

// Close releases this monitor's held fence descriptor, EGL sync object,
// previous buffer object, and GLES Context.
func (m *Monitor[T]) Close() {
	m.releasePrevious()
	m.gles.Close()
}

func (m *Monitor[T]) releasePrevious() {
	if m.previousFenceFD >= 0 {
		unix.Close(m.previousFenceFD)
		m.previousFenceFD = -1
	}
	if m.previousFence != nil {
		m.previousFence.DestroySync(m.gles.display)
		m.previousFence = nil
	}
	if m.previousBO != nil {
		m.previousBO.Release()
		m.previousBO = nil
	}
}

// prepareCommit stages this monitor's properties into a shared atomic
// request, per the per-monitor commit preparation sequence: buffer swap,
// previous-fence release, new fence creation, framebuffer creation, and
// property staging (CRTC_ID/MODE_ID/ACTIVE/plane geometry on a mode-set,
// FB_ID and IN_FENCE_FD always). It is a no-op if this monitor was not
// drawn this frame.
func (m *Monitor[T]) prepareCommit(c *card.Card, req *card.AtomicRequest) error {
	if !m.wasDrawn {
		return nil
	}

	bo, err := m.gles.SwapBuffers()
	if err != nil {
		return fmt.Errorf("swap buffers for connector %d: %w", m.connectorID, err)
	}

	m.releasePrevious()

	fence, err := m.gles.createFence()
	if err != nil {
		return fmt.Errorf("create fence for connector %d: %w", m.connectorID, err)
	}

	bw, bh := bo.Size()
	fbID, err := c.AddFramebuffer(bo.Handle(), bw, bh, bo.Stride(), 24, 32)
	if err != nil {
		bo.Release()
		return fmt.Errorf("add framebuffer for connector %d: %w", m.connectorID, err)
	}

	targetMode := m.ActiveMode()
	modeSet := m.NeedsModeSet()

	if modeSet {
		if prop, ok := m.connectorProps["CRTC_ID"]; ok {
			req.Add(m.connectorID, prop.ID, uint64(m.crtcID))
		}
		blobID, err := c.CreatePropertyBlob(card.ModeBlob(targetMode))
		if err != nil {
			return fmt.Errorf("create mode blob for connector %d: %w", m.connectorID, err)
		}
		if prop, ok := m.crtcProps["MODE_ID"]; ok {
			req.Add(m.crtcID, prop.ID, uint64(blobID))
		}
		if prop, ok := m.crtcProps["ACTIVE"]; ok {
			req.Add(m.crtcID, prop.ID, 1)
		}

		mw, mh := targetMode.Size()
		if prop, ok := m.planeProps["CRTC_ID"]; ok {
			req.Add(m.primaryPlane, prop.ID, uint64(m.crtcID))
		}
		if prop, ok := m.planeProps["SRC_X"]; ok {
			req.Add(m.primaryPlane, prop.ID, 0)
		}
		if prop, ok := m.planeProps["SRC_Y"]; ok {
			req.Add(m.primaryPlane, prop.ID, 0)
		}
		if prop, ok := m.planeProps["SRC_W"]; ok {
			req.Add(m.primaryPlane, prop.ID, uint64(mw)<<16)
		}
		if prop, ok := m.planeProps["SRC_H"]; ok {
			req.Add(m.primaryPlane, prop.ID, uint64(mh)<<16)
		}
		if prop, ok := m.planeProps["CRTC_X"]; ok {
			req.Add(m.primaryPlane, prop.ID, 0)
		}
		if prop, ok := m.planeProps["CRTC_Y"]; ok {
			req.Add(m.primaryPlane, prop.ID, 0)
		}
		if prop, ok := m.planeProps["CRTC_W"]; ok {
			req.Add(m.primaryPlane, prop.ID, uint64(mw))
		}
		if prop, ok := m.planeProps["CRTC_H"]; ok {
			req.Add(m.primaryPlane, prop.ID, uint64(mh))
		}
	}

	if prop, ok := m.planeProps["FB_ID"]; ok {
		req.Add(m.primaryPlane, prop.ID, uint64(fbID))
	}

	if prop, ok := m.crtcProps["IN_FENCE_FD"]; ok {
		req.Add(m.crtcID, prop.ID, uint64(fence.FD()))
	} else if prop, ok := m.planeProps["IN_FENCE_FD"]; ok {
		req.Add(m.primaryPlane, prop.ID, uint64(fence.FD()))
	}

	m.previousBO = bo
	m.previousFenceFD = fence.FD()
	m.previousFence = fence

	m.wasDrawn = false
	m.firstFrame = false
	m.canRender = false
	if modeSet {
		m.currentMode = &targetMode
	}
	return nil
}
