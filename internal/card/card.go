// Package card wraps a DRM device node: capability negotiation, resource
// and property enumeration, framebuffer and property-blob creation, and
// atomic-commit submission. It speaks to the kernel exclusively through
// raw ioctl(2) calls, the way a DRM client written without cgo must.
package card

import (
	"fmt"
	"os"
	"unsafe"
)

// Card is an owned handle to a DRM device node with Universal Planes and
// Atomic client capabilities enabled.
type Card struct {
	f *os.File
}

// Open opens the DRM device node at path with read-write access and
// negotiates the Universal Planes and Atomic client capabilities. I/O
// errors from the underlying open(2) are propagated verbatim (wrapped,
// never swallowed).
func Open(path string) (*Card, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	c := &Card{f: f}
	if err := c.setClientCap(drmClientCapUniversalPlanes); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: enable universal planes: %w", path, err)
	}
	if err := c.setClientCap(drmClientCapAtomic); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: enable atomic: %w", path, err)
	}
	return c, nil
}

// DevicePathsFunc enumerates candidate DRM device node paths, ordered by
// preference. OpenDefault calls it to learn what to try; production
// callers pass a function backed by EGL device enumeration
// (egl.DeviceNodePaths); a function returning a fixed slice works too.
type DevicePathsFunc func() ([]string, error)

// OpenDefault tries each path reported by paths() in order and returns the
// first that opens successfully. If paths() yields nothing, or every
// candidate fails to open, that is a fatal startup error.
func OpenDefault(paths DevicePathsFunc) (*Card, error) {
	candidates, err := paths()
	if err != nil {
		return nil, fmt.Errorf("enumerate DRM device nodes: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no DRM device nodes reported by device enumeration")
	}
	var lastErr error
	for _, p := range candidates {
		c, err := Open(p)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no DRM device node could be opened, last error: %w", lastErr)
}

// Fd returns the raw descriptor backing this Card. Its value stays valid
// for the Card's lifetime; callers must not close it directly.
func (c *Card) Fd() uintptr { return c.f.Fd() }

// File exposes the underlying *os.File, e.g. for poll(2) integration.
func (c *Card) File() *os.File { return c.f }

// Close releases the DRM device node.
func (c *Card) Close() error { return c.f.Close() }

func (c *Card) setClientCap(cap uint64) error {
	v := drmSetClientCap{Capability: cap, Value: 1}
	return ioctl(c.Fd(), ioctlSetClientCap, unsafe.Pointer(&v))
}

// ConnectionStatus mirrors struct drm_mode_get_connector.connection.
type ConnectionStatus uint32

const (
	Connected    ConnectionStatus = connectionConnected
	Disconnected ConnectionStatus = connectionDisconnected
	UnknownState ConnectionStatus = connectionUnknown
)

// Mode is the raw, wire-shaped timing description read off a connector.
// Two Modes compare equal with == iff every underlying timing field
// matches, including raw.Name — the full structural equality the display
// protocol demands.
type Mode struct {
	Width, Height uint16
	VRefresh      uint32
	raw           drmModeModeInfo
}

// Size returns the mode's (width, height) in pixels.
func (m Mode) Size() (int, int) { return int(m.Width), int(m.Height) }

// Resources is the set of object IDs returned by GETRESOURCES.
type Resources struct {
	CrtcIDs      []uint32
	ConnectorIDs []uint32
	EncoderIDs   []uint32
}

// Resources enumerates the device's CRTCs, connectors, and encoders.
func (c *Card) Resources() (*Resources, error) {
	var res drmModeCardRes
	if err := ioctl(c.Fd(), ioctlModeGetResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("MODE_GETRESOURCES (count): %w", err)
	}

	crtcIDs := make([]uint32, res.CountCrtcs)
	connectorIDs := make([]uint32, res.CountConnectors)
	encoderIDs := make([]uint32, res.CountEncoders)

	fill := drmModeCardRes{
		CountCrtcs:      res.CountCrtcs,
		CountConnectors: res.CountConnectors,
		CountEncoders:   res.CountEncoders,
	}
	if len(crtcIDs) > 0 {
		fill.CrtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcIDs[0])))
	}
	if len(connectorIDs) > 0 {
		fill.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connectorIDs[0])))
	}
	if len(encoderIDs) > 0 {
		fill.EncoderIDPtr = uint64(uintptr(unsafe.Pointer(&encoderIDs[0])))
	}
	if err := ioctl(c.Fd(), ioctlModeGetResources, unsafe.Pointer(&fill)); err != nil {
		return nil, fmt.Errorf("MODE_GETRESOURCES (fill): %w", err)
	}
	return &Resources{CrtcIDs: crtcIDs, ConnectorIDs: connectorIDs, EncoderIDs: encoderIDs}, nil
}

// ConnectorInfo is a connector's connection state, its candidate encoders,
// and its advertised modes.
type ConnectorInfo struct {
	ID          uint32
	Connection  ConnectionStatus
	EncoderIDs  []uint32
	Modes       []Mode
	EncoderID   uint32 // currently-bound encoder, 0 if none
}

// Connector fetches a connector's state. Callers must check Connection
// before trusting Modes or EncoderIDs.
func (c *Card) Connector(id uint32) (*ConnectorInfo, error) {
	var probe drmModeGetConnector
	probe.ConnectorID = id
	if err := ioctl(c.Fd(), ioctlModeGetConnector, unsafe.Pointer(&probe)); err != nil {
		return nil, fmt.Errorf("MODE_GETCONNECTOR(%d) count: %w", id, err)
	}

	encoderIDs := make([]uint32, probe.CountEncoders)
	modes := make([]drmModeModeInfo, probe.CountModes)

	fill := drmModeGetConnector{
		ConnectorID:   id,
		CountEncoders: probe.CountEncoders,
		CountModes:    probe.CountModes,
	}
	if len(encoderIDs) > 0 {
		fill.EncodersPtr = uint64(uintptr(unsafe.Pointer(&encoderIDs[0])))
	}
	if len(modes) > 0 {
		fill.ModesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
	}
	if err := ioctl(c.Fd(), ioctlModeGetConnector, unsafe.Pointer(&fill)); err != nil {
		return nil, fmt.Errorf("MODE_GETCONNECTOR(%d) fill: %w", id, err)
	}

	out := &ConnectorInfo{
		ID:         id,
		Connection: ConnectionStatus(fill.Connection),
		EncoderIDs: encoderIDs,
		EncoderID:  fill.EncoderID,
		Modes:      make([]Mode, len(modes)),
	}
	for i, m := range modes {
		out.Modes[i] = Mode{Width: m.Hdisplay, Height: m.Vdisplay, VRefresh: m.Vrefresh, raw: m}
	}
	return out, nil
}

// EncoderInfo carries an encoder's possible-CRTC bitmask.
type EncoderInfo struct {
	ID            uint32
	PossibleCrtcs uint32
}

// Encoder fetches one encoder's possible-CRTC mask.
func (c *Card) Encoder(id uint32) (*EncoderInfo, error) {
	var enc drmModeGetEncoder
	enc.EncoderID = id
	if err := ioctl(c.Fd(), ioctlModeGetEncoder, unsafe.Pointer(&enc)); err != nil {
		return nil, fmt.Errorf("MODE_GETENCODER(%d): %w", id, err)
	}
	return &EncoderInfo{ID: id, PossibleCrtcs: enc.PossibleCrtcs}, nil
}

// CrtcExists confirms a CRTC handle is currently valid by issuing
// GETCRTC against it (allocation candidates are verified this way,
// per the "first whose get_crtc succeeds" rule).
func (c *Card) CrtcExists(id uint32) bool {
	var crtc drmModeCrtc
	crtc.CrtcID = id
	return ioctl(c.Fd(), ioctlModeGetCrtc, unsafe.Pointer(&crtc)) == nil
}

// PlaneInfo carries a plane's possible-CRTC bitmask.
type PlaneInfo struct {
	ID            uint32
	PossibleCrtcs uint32
}

// Planes enumerates every plane ID on the device.
func (c *Card) Planes() ([]uint32, error) {
	var probe drmModeGetPlaneRes
	if err := ioctl(c.Fd(), ioctlModeGetPlaneResources, unsafe.Pointer(&probe)); err != nil {
		return nil, fmt.Errorf("MODE_GETPLANERESOURCES count: %w", err)
	}
	ids := make([]uint32, probe.CountPlanes)
	fill := drmModeGetPlaneRes{CountPlanes: probe.CountPlanes}
	if len(ids) > 0 {
		fill.PlaneIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	}
	if err := ioctl(c.Fd(), ioctlModeGetPlaneResources, unsafe.Pointer(&fill)); err != nil {
		return nil, fmt.Errorf("MODE_GETPLANERESOURCES fill: %w", err)
	}
	return ids, nil
}

// Plane fetches one plane's possible-CRTC mask.
func (c *Card) Plane(id uint32) (*PlaneInfo, error) {
	var pl drmModeGetPlane
	pl.PlaneID = id
	if err := ioctl(c.Fd(), ioctlModeGetPlane, unsafe.Pointer(&pl)); err != nil {
		return nil, fmt.Errorf("MODE_GETPLANE(%d): %w", id, err)
	}
	return &PlaneInfo{ID: id, PossibleCrtcs: pl.PossibleCrtcs}, nil
}

// ObjType identifies the DRM_MODE_OBJECT_* kind passed to
// ObjectProperties.
type ObjType uint32

const (
	ObjConnector ObjType = objTypeConnector
	ObjCrtc      ObjType = objTypeCrtc
	ObjPlane     ObjType = objTypePlane
)

// PropertyInfo names a property and the numeric ID the kernel assigned it
// for this object.
type PropertyInfo struct {
	ID   uint32
	Name string
}

// ObjectProperties snapshots an object's current properties, keyed by
// name, alongside each property's current value.
func (c *Card) ObjectProperties(objID uint32, objType ObjType) (map[string]PropertyInfo, map[string]uint64, error) {
	var probe drmModeObjGetProperties
	probe.ObjID = objID
	probe.ObjType = uint32(objType)
	if err := ioctl(c.Fd(), ioctlModeObjGetProperties, unsafe.Pointer(&probe)); err != nil {
		return nil, nil, fmt.Errorf("MODE_OBJ_GETPROPERTIES(%d) count: %w", objID, err)
	}

	propIDs := make([]uint32, probe.CountProps)
	values := make([]uint64, probe.CountProps)
	fill := drmModeObjGetProperties{
		ObjID:      objID,
		ObjType:    uint32(objType),
		CountProps: probe.CountProps,
	}
	if len(propIDs) > 0 {
		fill.PropsPtr = uint64(uintptr(unsafe.Pointer(&propIDs[0])))
		fill.PropValuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
	}
	if err := ioctl(c.Fd(), ioctlModeObjGetProperties, unsafe.Pointer(&fill)); err != nil {
		return nil, nil, fmt.Errorf("MODE_OBJ_GETPROPERTIES(%d) fill: %w", objID, err)
	}

	byName := make(map[string]PropertyInfo, len(propIDs))
	valueByName := make(map[string]uint64, len(propIDs))
	for i, id := range propIDs {
		name, err := c.propertyName(id)
		if err != nil {
			return nil, nil, err
		}
		info := PropertyInfo{ID: id, Name: name}
		byName[name] = info
		valueByName[name] = values[i]
	}
	return byName, valueByName, nil
}

func (c *Card) propertyName(propID uint32) (string, error) {
	var p drmModeGetProperty
	p.PropID = propID
	if err := ioctl(c.Fd(), ioctlModeGetProperty, unsafe.Pointer(&p)); err != nil {
		return "", fmt.Errorf("MODE_GETPROPERTY(%d): %w", propID, err)
	}
	n := 0
	for n < len(p.Name) && p.Name[n] != 0 {
		n++
	}
	return string(p.Name[:n]), nil
}

// CreatePropertyBlob uploads data as a kernel-side property blob and
// returns its ID.
func (c *Card) CreatePropertyBlob(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("CREATEPROPBLOB: empty data")
	}
	req := drmModeCreateBlob{
		Data:   uint64(uintptr(unsafe.Pointer(&data[0]))),
		Length: uint32(len(data)),
	}
	if err := ioctl(c.Fd(), ioctlModeCreatePropBlob, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("MODE_CREATEPROPBLOB: %w", err)
	}
	return req.BlobID, nil
}

// DestroyPropertyBlob releases a blob created by CreatePropertyBlob.
func (c *Card) DestroyPropertyBlob(blobID uint32) error {
	req := drmModeDestroyBlob{BlobID: blobID}
	if err := ioctl(c.Fd(), ioctlModeDestroyPropBlob, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("MODE_DESTROYPROPBLOB(%d): %w", blobID, err)
	}
	return nil
}

// AddFramebuffer wraps a dumb/GBM buffer handle in a DRM framebuffer
// object with the given geometry, depth, and bits-per-pixel.
func (c *Card) AddFramebuffer(handle, width, height, pitch, depth, bpp uint32) (uint32, error) {
	fb := drmModeFbCmd{
		Width:  width,
		Height: height,
		Pitch:  pitch,
		Bpp:    bpp,
		Depth:  depth,
		Handle: handle,
	}
	if err := ioctl(c.Fd(), ioctlModeAddFb, unsafe.Pointer(&fb)); err != nil {
		return 0, fmt.Errorf("MODE_ADDFB: %w", err)
	}
	return fb.FbID, nil
}

// RemoveFramebuffer destroys a framebuffer object created by
// AddFramebuffer.
func (c *Card) RemoveFramebuffer(fbID uint32) error {
	id := fbID
	if err := ioctl(c.Fd(), ioctlModeRmFb, unsafe.Pointer(&id)); err != nil {
		return fmt.Errorf("MODE_RMFB(%d): %w", fbID, err)
	}
	return nil
}

// Atomic commit flags, from drm_mode.h.
const (
	AtomicFlagPageFlipEvent uint32 = 0x01
	AtomicFlagAllowModeset  uint32 = 0x0400
	AtomicFlagTestOnly      uint32 = 0x0100
)

// atomicProp is one (object, property, value) triple staged for commit.
type atomicProp struct {
	objID  uint32
	propID uint32
	value  uint64
}

// AtomicRequest accumulates property changes for a single atomic commit.
// It mirrors libdrm's drmModeAtomicReq: callers Add properties for any
// number of objects and then hand the whole thing to AtomicCommit once.
type AtomicRequest struct {
	props []atomicProp
}

// NewAtomicRequest returns an empty request.
func NewAtomicRequest() *AtomicRequest { return &AtomicRequest{} }

// Add stages a property change. Order of addition does not matter; the
// kernel applies an atomic commit's properties as a single unit.
func (r *AtomicRequest) Add(objID, propID uint32, value uint64) {
	r.props = append(r.props, atomicProp{objID, propID, value})
}

// Empty reports whether any properties have been staged.
func (r *AtomicRequest) Empty() bool { return len(r.props) == 0 }

// groupAtomicProps groups staged properties by object, preserving
// first-seen object order, since drm_mode_atomic wants one
// count-of-properties entry per listed object ID, not per property.
func groupAtomicProps(props []atomicProp) (objs, countProps, propIDs []uint32, propValues []uint64) {
	order := make([]uint32, 0)
	byObj := make(map[uint32][]atomicProp)
	for _, p := range props {
		if _, ok := byObj[p.objID]; !ok {
			order = append(order, p.objID)
		}
		byObj[p.objID] = append(byObj[p.objID], p)
	}

	objs = make([]uint32, 0, len(order))
	countProps = make([]uint32, 0, len(order))
	for _, obj := range order {
		objs = append(objs, obj)
		group := byObj[obj]
		countProps = append(countProps, uint32(len(group)))
		for _, p := range group {
			propIDs = append(propIDs, p.propID)
			propValues = append(propValues, p.value)
		}
	}
	return objs, countProps, propIDs, propValues
}

// AtomicCommit submits a request with the given commit flags.
func (c *Card) AtomicCommit(r *AtomicRequest, flags uint32) error {
	if r.Empty() {
		return nil
	}

	objs, countProps, propIDs, propValues := groupAtomicProps(r.props)

	req := drmModeAtomic{
		Flags:     flags,
		CountObjs: uint32(len(objs)),
	}
	if len(objs) > 0 {
		req.ObjsPtr = uint64(uintptr(unsafe.Pointer(&objs[0])))
		req.CountPropsPtr = uint64(uintptr(unsafe.Pointer(&countProps[0])))
	}
	if len(propIDs) > 0 {
		req.PropsPtr = uint64(uintptr(unsafe.Pointer(&propIDs[0])))
		req.PropValuesPtr = uint64(uintptr(unsafe.Pointer(&propValues[0])))
	}
	if err := ioctl(c.Fd(), ioctlModeAtomic, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("MODE_ATOMIC: %w", err)
	}
	return nil
}

// ModeBlob encodes a Mode back into the raw drm_mode_modeinfo bytes
// CreatePropertyBlob expects for a CRTC's MODE_ID property.
func ModeBlob(m Mode) []byte {
	buf := make([]byte, unsafe.Sizeof(m.raw))
	*(*drmModeModeInfo)(unsafe.Pointer(&buf[0])) = m.raw
	return buf
}
