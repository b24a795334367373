package easydrm

import (
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/hyprside/easydrm/internal/card"
	"github.com/hyprside/easydrm/internal/egl"
	"github.com/hyprside/easydrm/internal/gbmdevice"
	"github.com/hyprside/easydrm/internal/glesfn"
	"github.com/hyprside/easydrm/internal/uevent"
)

// Options configures an Orchestrator. The zero value is valid: it opens
// the default DRM device (discovered via EGL device enumeration) and logs
// to slog.Default().
type Options struct {
	// DevicePath overrides default device discovery with a specific DRM
	// device node (e.g. "/dev/dri/card0").
	DevicePath string

	// Logger receives discovery and hot-plug diagnostics. Nil
	// defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Orchestrator is the top-level object: it owns the DRM device and GBM
// device, discovers and allocates displays into Monitors, and drives the
// poll loop, per-frame atomic-commit batch, and fastest-refresh-group
// pulse.
type Orchestrator[T any] struct {
	card   *card.Card
	gbm    *gbmdevice.Device
	uevent *uevent.Socket // nil if unavailable; hot-plug detection disabled
	log    *slog.Logger
	build  ContextConstructor[T]

	monitors map[uint32]*Monitor[T]

	refreshGroups        map[uint32][]uint32
	fastestGroupRefresh  uint32
	fastestGroupPresent  bool
	fastestGroupPending  map[uint32]bool
	shouldUpdateFlag     bool
}

// New builds an Orchestrator, opening the DRM and GBM devices, opening the
// uevent socket (non-fatal if unavailable), and running initial discovery.
func New[T any](opts Options, build ContextConstructor[T]) (*Orchestrator[T], error) {
	log := opts.logger()

	var c *card.Card
	var err error
	if opts.DevicePath != "" {
		c, err = card.Open(opts.DevicePath)
	} else {
		c, err = card.OpenDefault(egl.DeviceNodePaths)
	}
	if err != nil {
		return nil, fmt.Errorf("open DRM device: %w", err)
	}

	gbmDev, err := gbmdevice.Open(c.Fd())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open GBM device: %w", err)
	}

	var uSock *uevent.Socket
	if s, err := uevent.Open(); err != nil {
		log.Warn("uevent socket unavailable, hot-plug detection disabled", "err", err)
	} else {
		uSock = s
	}

	o := &Orchestrator[T]{
		card:                c,
		gbm:                 gbmDev,
		uevent:               uSock,
		log:                  log,
		build:                build,
		monitors:             make(map[uint32]*Monitor[T]),
		refreshGroups:        make(map[uint32][]uint32),
		fastestGroupPending:  make(map[uint32]bool),
	}
	o.discover()
	return o, nil
}

// NewEmpty is a convenience constructor for callers with no per-monitor
// context needs.
func NewEmpty(opts Options) (*Orchestrator[struct{}], error) {
	return New(opts, func(*glesfn.Table, int, int) struct{} { return struct{}{} })
}

// usedResources computes the CRTC, primary-plane, and cursor-plane IDs
// already owned by live Monitors.
func (o *Orchestrator[T]) usedResources() (crtcs, primaries, cursors map[uint32]bool) {
	crtcs = make(map[uint32]bool)
	primaries = make(map[uint32]bool)
	cursors = make(map[uint32]bool)
	for _, m := range o.monitors {
		crtcs[m.crtcID] = true
		primaries[m.primaryPlane] = true
		if m.cursorPlane != 0 {
			cursors[m.cursorPlane] = true
		}
	}
	return
}

// discover fetches resource handles and allocates + sets up a Monitor for
// every connected connector not already owned. Allocation failures are
// logged and skip that connector; discovery is best-effort, never
// all-or-nothing.
func (o *Orchestrator[T]) discover() {
	res, err := o.card.Resources()
	if err != nil {
		o.log.Error("enumerate DRM resources", "err", err)
		return
	}

	usedCrtcs, usedPrimaries, usedCursors := o.usedResources()
	changed := false

	for _, connID := range res.ConnectorIDs {
		if _, ok := o.monitors[connID]; ok {
			continue
		}
		info, err := o.card.Connector(connID)
		if err != nil {
			o.log.Warn("fetch connector", "connector_id", connID, "err", err)
			continue
		}
		if info.Connection != card.Connected {
			continue
		}

		alloc, err := o.allocateResources(res, info, usedCrtcs, usedPrimaries, usedCursors)
		if err != nil {
			o.log.Warn("allocate resources for connector", "connector_id", connID, "err", err)
			continue
		}

		mon, err := setupMonitor(o.card, o.gbm, connID, alloc, o.build)
		if err != nil {
			o.log.Warn("set up monitor for connector", "connector_id", connID, "err", err)
			continue
		}

		usedCrtcs[alloc.CrtcID] = true
		usedPrimaries[alloc.PrimaryPlane] = true
		if alloc.CursorPlane != 0 {
			usedCursors[alloc.CursorPlane] = true
		}

		o.monitors[connID] = mon
		o.log.Info("monitor created", "connector_id", connID, "crtc_id", alloc.CrtcID)
		changed = true
	}

	if changed {
		o.updateRefreshGroups()
	}
}

// allocateResources implements the CRTC → primary-plane → cursor-plane
// allocation rule for one connector.
func (o *Orchestrator[T]) allocateResources(res *card.Resources, info *card.ConnectorInfo, usedCrtcs, usedPrimaries, usedCursors map[uint32]bool) (ResourceAllocation, error) {
	crtcID, err := o.findCRTC(res, info, usedCrtcs)
	if err != nil {
		return ResourceAllocation{}, err
	}

	planeIDs, err := o.card.Planes()
	if err != nil {
		return ResourceAllocation{}, fmt.Errorf("enumerate planes: %w", err)
	}

	primary, err := o.findPlane(planeIDs, crtcID, usedPrimaries, drmPlaneTypePrimary)
	if err != nil {
		return ResourceAllocation{}, ErrNoPrimaryPlaneFound
	}

	cursor, _ := o.findPlane(planeIDs, crtcID, usedCursors, drmPlaneTypeCursor)

	return ResourceAllocation{CrtcID: crtcID, PrimaryPlane: primary, CursorPlane: cursor}, nil
}

// findCRTC intersects each candidate encoder's possible-CRTC mask with the
// device's CRTC list, subtracts already-used CRTCs, de-duplicates
// preserving order, and returns the first candidate whose GETCRTC succeeds.
func (o *Orchestrator[T]) findCRTC(res *card.Resources, info *card.ConnectorInfo, used map[uint32]bool) (uint32, error) {
	seen := make(map[uint32]bool)
	var candidates []uint32
	for _, encID := range info.EncoderIDs {
		enc, err := o.card.Encoder(encID)
		if err != nil {
			continue
		}
		for i, crtcID := range res.CrtcIDs {
			if enc.PossibleCrtcs&(1<<uint(i)) == 0 {
				continue
			}
			if used[crtcID] || seen[crtcID] {
				continue
			}
			seen[crtcID] = true
			candidates = append(candidates, crtcID)
		}
	}
	for _, crtcID := range candidates {
		if o.card.CrtcExists(crtcID) {
			return crtcID, nil
		}
	}
	return 0, ErrNoCRTCFound
}

// DRM_PLANE_TYPE_* values, from drm_mode.h; exposed to userspace as the
// numeric value of a plane's "type" property.
const (
	drmPlaneTypeOverlay uint64 = 0
	drmPlaneTypePrimary uint64 = 1
	drmPlaneTypeCursor  uint64 = 2
)

// findPlane returns the first unused plane whose possible-CRTC mask
// includes crtcID and whose "type" property value, queried from the
// kernel on each call, equals wantType.
func (o *Orchestrator[T]) findPlane(planeIDs []uint32, crtcID uint32, used map[uint32]bool, wantType uint64) (uint32, error) {
	crtcIndex, err := o.crtcIndex(crtcID)
	if err != nil {
		return 0, err
	}
	for _, planeID := range planeIDs {
		if used[planeID] {
			continue
		}
		pl, err := o.card.Plane(planeID)
		if err != nil {
			continue
		}
		if pl.PossibleCrtcs&(1<<uint(crtcIndex)) == 0 {
			continue
		}
		_, values, err := o.card.ObjectProperties(planeID, card.ObjPlane)
		if err != nil {
			continue
		}
		if values["type"] != wantType {
			continue
		}
		return planeID, nil
	}
	return 0, fmt.Errorf("no plane of type %d found for CRTC %d", wantType, crtcID)
}

func (o *Orchestrator[T]) crtcIndex(crtcID uint32) (int, error) {
	res, err := o.card.Resources()
	if err != nil {
		return 0, err
	}
	for i, id := range res.CrtcIDs {
		if id == crtcID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("CRTC %d not found in resources", crtcID)
}

// updateRefreshGroups recomputes the refresh-rate grouping from the
// current monitor set and resets the fastest-group pulse state.
func (o *Orchestrator[T]) updateRefreshGroups() {
	groups := make(map[uint32][]uint32)
	for id, m := range o.monitors {
		hz := m.ActiveMode().VRefresh
		groups[hz] = append(groups[hz], id)
	}
	o.refreshGroups = groups

	var fastest uint32
	present := false
	for hz := range groups {
		if !present || hz > fastest {
			fastest = hz
			present = true
		}
	}
	o.fastestGroupRefresh = fastest
	o.fastestGroupPresent = present
	o.resetFastestGroupPending()
}

func (o *Orchestrator[T]) resetFastestGroupPending() {
	o.fastestGroupPending = make(map[uint32]bool)
	if o.fastestGroupPresent {
		for _, id := range o.refreshGroups[o.fastestGroupRefresh] {
			o.fastestGroupPending[id] = true
		}
	}
	o.shouldUpdateFlag = false
}

func (o *Orchestrator[T]) markFastGroupCommit(id uint32) {
	if !o.fastestGroupPending[id] {
		return
	}
	delete(o.fastestGroupPending, id)
	if len(o.fastestGroupPending) == 0 {
		o.shouldUpdateFlag = true
	}
}

// ShouldUpdate reports whether every connector in the fastest refresh
// group has been committed since the last reset. Calling it clears the
// pulse and starts a new cycle; it returns true at most once per cycle.
func (o *Orchestrator[T]) ShouldUpdate() bool {
	if !o.shouldUpdateFlag {
		return false
	}
	o.resetFastestGroupPending()
	return true
}

// RefreshRateGroups returns a read-only view mapping refresh rate in Hz to
// the connector IDs sharing it.
func (o *Orchestrator[T]) RefreshRateGroups() map[uint32][]uint32 {
	out := make(map[uint32][]uint32, len(o.refreshGroups))
	for hz, ids := range o.refreshGroups {
		cp := make([]uint32, len(ids))
		copy(cp, ids)
		out[hz] = cp
	}
	return out
}

// MonitorCount returns the number of live monitors.
func (o *Orchestrator[T]) MonitorCount() int { return len(o.monitors) }

// HasMonitors reports whether any monitor is live.
func (o *Orchestrator[T]) HasMonitors() bool { return len(o.monitors) > 0 }

// AnyCanRender reports whether at least one live monitor can accept a new
// frame.
func (o *Orchestrator[T]) AnyCanRender() bool {
	for _, m := range o.monitors {
		if m.CanRender() {
			return true
		}
	}
	return false
}

// Monitors returns every live monitor, sorted by connector ID for
// deterministic iteration.
func (o *Orchestrator[T]) Monitors() []*Monitor[T] {
	ids := make([]uint32, 0, len(o.monitors))
	for id := range o.monitors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Monitor[T], len(ids))
	for i, id := range ids {
		out[i] = o.monitors[id]
	}
	return out
}

// GetMonitor looks up a monitor by connector ID.
func (o *Orchestrator[T]) GetMonitor(connID uint32) (*Monitor[T], bool) {
	m, ok := o.monitors[connID]
	return m, ok
}

// SwapBuffers builds one atomic request from every monitor drawn this
// frame, submits it with PAGE_FLIP_EVENT|ALLOW_MODESET, and marks each
// committed connector against the fastest-group pulse.
func (o *Orchestrator[T]) SwapBuffers() error {
	req := card.NewAtomicRequest()
	var committed []uint32

	for id, m := range o.monitors {
		if !m.wasDrawn {
			continue
		}
		if err := m.prepareCommit(o.card, req); err != nil {
			return fmt.Errorf("prepare commit for connector %d: %w", id, err)
		}
		committed = append(committed, id)
	}

	if req.Empty() {
		return nil
	}

	flags := card.AtomicFlagPageFlipEvent | card.AtomicFlagAllowModeset
	if err := o.card.AtomicCommit(req, flags); err != nil {
		return fmt.Errorf("atomic commit: %w", err)
	}

	for _, id := range committed {
		o.markFastGroupCommit(id)
	}
	return nil
}

// PollEvents blocks until a DRM page-flip, a hot-plug notification, or any
// extra descriptor becomes readable, then dispatches accordingly.
func (o *Orchestrator[T]) PollEvents() error {
	return o.PollEventsEx(nil)
}

// PollEventsEx is PollEvents plus additional raw descriptors to watch.
func (o *Orchestrator[T]) PollEventsEx(extra []int) error {
	fds := []unix.PollFd{{Fd: int32(o.card.Fd()), Events: unix.POLLIN}}
	for _, e := range extra {
		fds = append(fds, unix.PollFd{Fd: int32(e), Events: unix.POLLIN})
	}
	uSockIdx := -1
	if o.uevent != nil {
		uSockIdx = len(fds)
		fds = append(fds, unix.PollFd{Fd: int32(o.uevent.Fd()), Events: unix.POLLIN})
	}

	if _, err := unix.Poll(fds, -1); err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("poll: %w", err)
	}

	if uSockIdx >= 0 && fds[uSockIdx].Revents&unix.POLLIN != 0 {
		hotplug, err := o.uevent.Drain()
		if err != nil {
			o.log.Warn("drain uevent socket", "err", err)
		} else if hotplug {
			o.handleHotplug()
		}
	}

	if fds[0].Revents&unix.POLLIN != 0 {
		events, err := o.card.ReadEvents()
		if err != nil {
			return fmt.Errorf("read DRM events: %w", err)
		}
		for _, ev := range events {
			for _, m := range o.monitors {
				if m.crtcID == ev.CrtcID {
					m.canRender = true
				}
			}
		}
	}

	return nil
}

// handleHotplug reconciles the monitor set against the current connector
// topology: removed connectors are torn down, new connected connectors are
// allocated and set up. Refresh groups are recomputed only if the topology
// actually changed.
func (o *Orchestrator[T]) handleHotplug() {
	res, err := o.card.Resources()
	if err != nil {
		o.log.Error("enumerate DRM resources during hot-plug", "err", err)
		return
	}

	present := make(map[uint32]bool, len(res.ConnectorIDs))
	for _, id := range res.ConnectorIDs {
		present[id] = true
	}

	changed := false
	for id, m := range o.monitors {
		if present[id] {
			continue
		}
		m.Close()
		delete(o.monitors, id)
		o.log.Info("monitor removed", "connector_id", id)
		changed = true
	}

	before := len(o.monitors)
	o.discover()
	if len(o.monitors) != before {
		changed = true
	}

	if changed {
		o.updateRefreshGroups()
	}
}

// Close tears down every monitor and releases the uevent socket, GBM
// device, and DRM device, in that order.
func (o *Orchestrator[T]) Close() error {
	for _, m := range o.monitors {
		m.Close()
	}
	if o.uevent != nil {
		o.uevent.Close()
	}
	if err := o.gbm.Close(); err != nil {
		return fmt.Errorf("close GBM device: %w", err)
	}
	return o.card.Close()
}
