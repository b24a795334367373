package card

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// DRM ioctl numbers, computed the same way the kernel's _IOWR/_IOW macros
// do: (dir<<30) | (size<<16) | (type<<8) | nr, with type='d' (0x64) and
// dir=0xC0000000 for read-write transfers. Each constant's comment carries
// the macro form and the struct it pairs with so the two stay honest.
const (
	// DRM_IOCTL_SET_MASTER = _IO('d', 0x1e)
	ioctlSetMaster = 0x641e

	// DRM_IOCTL_DROP_MASTER = _IO('d', 0x1f)
	ioctlDropMaster = 0x641f

	// DRM_IOCTL_SET_CLIENT_CAP = _IOW('d', 0x0d, struct drm_set_client_cap) (16 bytes)
	ioctlSetClientCap = 0x4010640d

	// DRM_IOCTL_MODE_GETRESOURCES = _IOWR('d', 0xa0, struct drm_mode_card_res) (64 bytes)
	ioctlModeGetResources = 0xc04064a0

	// DRM_IOCTL_MODE_GETCRTC = _IOWR('d', 0xa1, struct drm_mode_crtc) (104 bytes)
	ioctlModeGetCrtc = 0xc06864a1

	// DRM_IOCTL_MODE_SETCRTC = _IOWR('d', 0xa2, struct drm_mode_crtc) (104 bytes)
	ioctlModeSetCrtc = 0xc06864a2

	// DRM_IOCTL_MODE_GETENCODER = _IOWR('d', 0xa6, struct drm_mode_get_encoder) (20 bytes)
	ioctlModeGetEncoder = 0xc01464a6

	// DRM_IOCTL_MODE_GETCONNECTOR = _IOWR('d', 0xa7, struct drm_mode_get_connector) (80 bytes)
	ioctlModeGetConnector = 0xc05064a7

	// DRM_IOCTL_MODE_GETPROPERTY = _IOWR('d', 0xaa, struct drm_mode_get_property) (64 bytes)
	ioctlModeGetProperty = 0xc04064aa

	// DRM_IOCTL_MODE_ADDFB = _IOWR('d', 0xae, struct drm_mode_fb_cmd) (28 bytes)
	ioctlModeAddFb = 0xc01c64ae

	// DRM_IOCTL_MODE_RMFB = _IOWR('d', 0xaf, __u32) (4 bytes)
	ioctlModeRmFb = 0xc00464af

	// DRM_IOCTL_MODE_GETPLANERESOURCES = _IOWR('d', 0xb5, struct drm_mode_get_plane_res) (16 bytes)
	ioctlModeGetPlaneResources = 0xc01064b5

	// DRM_IOCTL_MODE_GETPLANE = _IOWR('d', 0xb6, struct drm_mode_get_plane) (32 bytes)
	ioctlModeGetPlane = 0xc02064b6

	// DRM_IOCTL_MODE_OBJ_GETPROPERTIES = _IOWR('d', 0xb9, struct drm_mode_obj_get_properties) (32 bytes)
	ioctlModeObjGetProperties = 0xc02064b9

	// DRM_IOCTL_MODE_ATOMIC = _IOWR('d', 0xbc, struct drm_mode_atomic) (56 bytes)
	ioctlModeAtomic = 0xc03864bc

	// DRM_IOCTL_MODE_CREATEPROPBLOB = _IOWR('d', 0xbd, struct drm_mode_create_blob) (16 bytes)
	ioctlModeCreatePropBlob = 0xc01064bd

	// DRM_IOCTL_MODE_DESTROYPROPBLOB = _IOWR('d', 0xbe, struct drm_mode_destroy_blob) (4 bytes)
	ioctlModeDestroyPropBlob = 0xc00464be
)

// Connection status values from struct drm_mode_get_connector.connection.
const (
	connectionConnected    = 1
	connectionDisconnected = 2
	connectionUnknown      = 3
)

const drmClientCapUniversalPlanes = 2
const drmClientCapAtomic = 3

type drmSetClientCap struct {
	Capability uint64
	Value      uint64
}

// drmModeCardRes corresponds to struct drm_mode_card_res.
type drmModeCardRes struct {
	FbIDPtr         uint64
	CrtcIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFbs        uint32
	CountCrtcs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

// drmModeModeInfo corresponds to struct drm_mode_modeinfo (68 bytes).
type drmModeModeInfo struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vscan      uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

// drmModeCrtc corresponds to struct drm_mode_crtc (104 bytes).
type drmModeCrtc struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FbID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             drmModeModeInfo
}

// drmModeGetEncoder corresponds to struct drm_mode_get_encoder.
type drmModeGetEncoder struct {
	EncoderID      uint32
	EncoderType    uint32
	CrtcID         uint32
	PossibleCrtcs  uint32
	PossibleClones uint32
}

// drmModeGetConnector corresponds to struct drm_mode_get_connector.
type drmModeGetConnector struct {
	EncodersPtr     uint64
	ModesPtr        uint64
	PropsPtr        uint64
	PropValuesPtr   uint64
	CountModes      uint32
	CountProps      uint32
	CountEncoders   uint32
	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32
	Connection      uint32
	MmWidth         uint32
	MmHeight        uint32
	Subpixel        uint32
	Pad             uint32
}

// drmModeGetPlaneRes corresponds to struct drm_mode_get_plane_res.
type drmModeGetPlaneRes struct {
	PlaneIDPtr  uint64
	CountPlanes uint32
	_           uint32 // struct padding to keep 8-byte alignment for the leading u64
}

// drmModeGetPlane corresponds to struct drm_mode_get_plane.
type drmModeGetPlane struct {
	PlaneID          uint32
	CrtcID           uint32
	FbID             uint32
	PossibleCrtcs    uint32
	GammaSize        uint32
	CountFormatTypes uint32
	FormatTypePtr    uint64
}

// drmModeObjGetProperties corresponds to struct drm_mode_obj_get_properties.
type drmModeObjGetProperties struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
	_             uint32 // trailing padding, struct is 8-byte aligned
}

// drmModeGetProperty corresponds to struct drm_mode_get_property.
type drmModeGetProperty struct {
	ValuesPtr      uint64
	EnumBlobPtr    uint64
	PropID         uint32
	Flags          uint32
	Name           [32]byte
	CountValues    uint32
	CountEnumBlobs uint32
}

// drmModeCreateBlob corresponds to struct drm_mode_create_blob.
type drmModeCreateBlob struct {
	Data   uint64
	Length uint32
	BlobID uint32
}

// drmModeDestroyBlob corresponds to struct drm_mode_destroy_blob.
type drmModeDestroyBlob struct {
	BlobID uint32
}

// drmModeFbCmd corresponds to struct drm_mode_fb_cmd.
type drmModeFbCmd struct {
	FbID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Handle uint32
}

// drmModeAtomic corresponds to struct drm_mode_atomic.
type drmModeAtomic struct {
	Flags         uint32
	CountObjs     uint32
	ObjsPtr       uint64
	CountPropsPtr uint64
	PropsPtr      uint64
	PropValuesPtr uint64
	Reserved      uint64
	UserData      uint64
}

// DRM_MODE_OBJECT_* codes, used as the obj_type argument to
// DRM_IOCTL_MODE_OBJ_GETPROPERTIES.
const (
	objTypeConnector = 0xc0c0c0c0
	objTypeCrtc      = 0xcccccccc
	objTypePlane     = 0xeeeeeeee
	objTypeAny       = 0
)

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
