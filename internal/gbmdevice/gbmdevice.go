// Package gbmdevice wraps libgbm: a buffer-object allocator bound to a
// DRM device node, used as the native backing for an EGL window surface
// and as the source of front buffers locked after each swap.
package gbmdevice

/*
#cgo LDFLAGS: -lgbm
#include <gbm.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Format mirrors the gbm_bo_format / fourcc codes this package uses.
type Format uint32

// XRGB8888 is the only pixel format this framework scans out.
const XRGB8888 Format = C.GBM_FORMAT_XRGB8888

// BOFlags mirrors gbm_bo_flags.
type BOFlags uint32

const (
	BOScanout  BOFlags = C.GBM_BO_USE_SCANOUT
	BORenderin BOFlags = C.GBM_BO_USE_RENDERING
)

// Device owns a gbm_device bound to a *duplicate* of the caller's DRM
// file descriptor, so its lifetime never depends on the Card's.
type Device struct {
	dev *C.struct_gbm_device
	fd  int
}

// Open duplicates drmFd and creates a gbm_device bound to the duplicate.
// The original descriptor is left untouched; Close() releases only the
// duplicate.
func Open(drmFd uintptr) (*Device, error) {
	dup, err := unix.Dup(int(drmFd))
	if err != nil {
		return nil, fmt.Errorf("dup DRM fd for GBM device: %w", err)
	}
	dev := C.gbm_create_device(C.int(dup))
	if dev == nil {
		unix.Close(dup)
		return nil, fmt.Errorf("gbm_create_device failed")
	}
	return &Device{dev: dev, fd: dup}, nil
}

// NativePointer returns the raw gbm_device pointer, for binding an EGL
// display to it (eglGetPlatformDisplay(EGL_PLATFORM_GBM_KHR, ptr, ...)).
func (d *Device) NativePointer() unsafe.Pointer { return unsafe.Pointer(d.dev) }

// Close destroys the gbm_device and closes its duplicated descriptor.
func (d *Device) Close() error {
	if d.dev != nil {
		C.gbm_device_destroy(d.dev)
		d.dev = nil
	}
	return unix.Close(d.fd)
}

// Surface is a GBM scanout-capable rendering surface.
type Surface struct {
	surf          *C.struct_gbm_surface
	width, height uint32
}

// CreateSurface allocates a surface of the given size with format
// XRGB8888 and usage SCANOUT|RENDERING.
func (d *Device) CreateSurface(width, height uint32) (*Surface, error) {
	surf := C.gbm_surface_create(d.dev, C.uint32_t(width), C.uint32_t(height),
		C.uint32_t(XRGB8888), C.uint32_t(BOScanout|BORenderin))
	if surf == nil {
		return nil, fmt.Errorf("gbm_surface_create(%dx%d) failed", width, height)
	}
	return &Surface{surf: surf, width: width, height: height}, nil
}

// NativePointer returns the raw gbm_surface pointer, for EGL window
// surface creation.
func (s *Surface) NativePointer() unsafe.Pointer { return unsafe.Pointer(s.surf) }

// Destroy releases the surface.
func (s *Surface) Destroy() {
	if s.surf != nil {
		C.gbm_surface_destroy(s.surf)
		s.surf = nil
	}
}

// BufferObject is a locked front buffer: a scanout-capable dumb buffer
// plus the kernel handle/stride needed to wrap it in a DRM framebuffer.
type BufferObject struct {
	bo     *C.struct_gbm_bo
	surf   *C.struct_gbm_surface
	handle uint32
	stride uint32
	width  uint32
	height uint32
}

// LockFrontBuffer locks the surface's current front buffer after an EGL
// swap. The returned BufferObject must be released (via Release) once a
// subsequent frame's commit no longer needs it — the two-deep retention
// rule lives one layer up, in the Monitor state machine.
func (s *Surface) LockFrontBuffer() (*BufferObject, error) {
	bo := C.gbm_surface_lock_front_buffer(s.surf)
	if bo == nil {
		return nil, fmt.Errorf("gbm_surface_lock_front_buffer failed")
	}
	return &BufferObject{
		bo:     bo,
		surf:   s.surf,
		handle: uint32(C.gbm_bo_get_handle(bo).u32),
		stride: uint32(C.gbm_bo_get_stride(bo)),
		width:  uint32(C.gbm_bo_get_width(bo)),
		height: uint32(C.gbm_bo_get_height(bo)),
	}, nil
}

// Handle returns the kernel GEM handle of this buffer, for
// DRM_IOCTL_MODE_ADDFB.
func (b *BufferObject) Handle() uint32 { return b.handle }

// Stride returns the buffer's pitch in bytes.
func (b *BufferObject) Stride() uint32 { return b.stride }

// Size returns the buffer's (width, height) in pixels.
func (b *BufferObject) Size() (uint32, uint32) { return b.width, b.height }

// Release returns the buffer object to the surface, allowing the GBM
// allocator to reuse or free its backing memory.
func (b *BufferObject) Release() {
	if b.bo != nil {
		C.gbm_surface_release_buffer(b.surf, b.bo)
		b.bo = nil
	}
}
