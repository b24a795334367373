// Package egl binds a GBM device and surface to an OpenGL ES context:
// display creation, config selection, window-surface and context
// creation, procedure-address resolution, and fence-based
// GPU↔display synchronization (KHR_fence_sync,
// ANDROID_native_fence_sync). It is a thin cgo wrapper — no Go EGL
// binding exists for this platform extension surface, so this package
// talks to libEGL directly, the way a compositor-less renderer must.
package egl

/*
#cgo LDFLAGS: -lEGL
#include <EGL/egl.h>
#include <EGL/eglext.h>
#include <stdlib.h>

#ifndef EGL_PLATFORM_GBM_KHR
#define EGL_PLATFORM_GBM_KHR 0x31D7
#endif
#ifndef EGL_SYNC_NATIVE_FENCE_ANDROID
#define EGL_SYNC_NATIVE_FENCE_ANDROID 0x3144
#endif
#ifndef EGL_SYNC_NATIVE_FENCE_FD_ANDROID
#define EGL_SYNC_NATIVE_FENCE_FD_ANDROID 0x3145
#endif
#ifndef EGL_NO_NATIVE_FENCE_FD_ANDROID
#define EGL_NO_NATIVE_FENCE_FD_ANDROID -1
#endif
#ifndef EGL_DRM_DEVICE_FILE_EXT
#define EGL_DRM_DEVICE_FILE_EXT 0x3233
#endif

// Extension entry points aren't exported symbols, so resolve and wrap
// each one through eglGetProcAddress the way every EGL platform
// extension must be consumed.

static PFNEGLQUERYDEVICESEXTPROC               p_eglQueryDevicesEXT = NULL;
static PFNEGLQUERYDEVICESTRINGEXTPROC          p_eglQueryDeviceStringEXT = NULL;
static PFNEGLGETPLATFORMDISPLAYEXTPROC         p_eglGetPlatformDisplayEXT = NULL;
static PFNEGLCREATESYNCKHRPROC                 p_eglCreateSyncKHR = NULL;
static PFNEGLDESTROYSYNCKHRPROC                p_eglDestroySyncKHR = NULL;
static PFNEGLDUPNATIVEFENCEFDANDROIDPROC       p_eglDupNativeFenceFDANDROID = NULL;

static void easydrm_egl_load_extensions(void) {
    if (!p_eglQueryDevicesEXT)
        p_eglQueryDevicesEXT = (PFNEGLQUERYDEVICESEXTPROC)eglGetProcAddress("eglQueryDevicesEXT");
    if (!p_eglQueryDeviceStringEXT)
        p_eglQueryDeviceStringEXT = (PFNEGLQUERYDEVICESTRINGEXTPROC)eglGetProcAddress("eglQueryDeviceStringEXT");
    if (!p_eglGetPlatformDisplayEXT)
        p_eglGetPlatformDisplayEXT = (PFNEGLGETPLATFORMDISPLAYEXTPROC)eglGetProcAddress("eglGetPlatformDisplayEXT");
    if (!p_eglCreateSyncKHR)
        p_eglCreateSyncKHR = (PFNEGLCREATESYNCKHRPROC)eglGetProcAddress("eglCreateSyncKHR");
    if (!p_eglDestroySyncKHR)
        p_eglDestroySyncKHR = (PFNEGLDESTROYSYNCKHRPROC)eglGetProcAddress("eglDestroySyncKHR");
    if (!p_eglDupNativeFenceFDANDROID)
        p_eglDupNativeFenceFDANDROID = (PFNEGLDUPNATIVEFENCEFDANDROIDPROC)eglGetProcAddress("eglDupNativeFenceFDANDROID");
}

static EGLBoolean easydrm_query_devices(EGLint max, EGLDeviceEXT *devices, EGLint *num) {
    if (!p_eglQueryDevicesEXT) return EGL_FALSE;
    return p_eglQueryDevicesEXT(max, devices, num);
}

static const char *easydrm_query_device_string(EGLDeviceEXT dev, EGLint name) {
    if (!p_eglQueryDeviceStringEXT) return NULL;
    return p_eglQueryDeviceStringEXT(dev, name);
}

static EGLDisplay easydrm_get_platform_display(EGLenum platform, void *native, const EGLint *attribs) {
    if (p_eglGetPlatformDisplayEXT) {
        return p_eglGetPlatformDisplayEXT(platform, native, attribs);
    }
    return eglGetDisplay((EGLNativeDisplayType)native);
}

static EGLSyncKHR easydrm_create_sync_fence(EGLDisplay dpy) {
    if (!p_eglCreateSyncKHR) return EGL_NO_SYNC_KHR;
    return p_eglCreateSyncKHR(dpy, EGL_SYNC_NATIVE_FENCE_ANDROID, NULL);
}

static EGLBoolean easydrm_destroy_sync(EGLDisplay dpy, EGLSyncKHR sync) {
    if (!p_eglDestroySyncKHR) return EGL_FALSE;
    return p_eglDestroySyncKHR(dpy, sync);
}

static EGLint easydrm_dup_native_fence_fd(EGLDisplay dpy, EGLSyncKHR sync) {
    if (!p_eglDupNativeFenceFDANDROID) return -1;
    return p_eglDupNativeFenceFDANDROID(dpy, sync);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

func init() {
	C.easydrm_egl_load_extensions()
}

// DeviceNodePaths enumerates GPUs visible to EGL via EGL_EXT_device_base /
// EGL_EXT_device_drm and returns each one's DRM device-node path, in
// enumeration order. Devices lacking EGL_DRM_DEVICE_FILE_EXT are skipped.
func DeviceNodePaths() ([]string, error) {
	var num C.EGLint
	if C.easydrm_query_devices(0, nil, &num) == C.EGL_FALSE || num == 0 {
		return nil, fmt.Errorf("EGL_EXT_device_query unsupported or no devices found")
	}
	devices := make([]C.EGLDeviceEXT, num)
	if C.easydrm_query_devices(num, &devices[0], &num) == C.EGL_FALSE {
		return nil, fmt.Errorf("eglQueryDevicesEXT failed")
	}

	var paths []string
	for i := 0; i < int(num); i++ {
		cpath := C.easydrm_query_device_string(devices[i], C.EGL_DRM_DEVICE_FILE_EXT)
		if cpath == nil {
			continue
		}
		paths = append(paths, C.GoString(cpath))
	}
	return paths, nil
}

// Display is an EGL display bound to a GBM device.
type Display struct {
	disp C.EGLDisplay
}

// NewDisplay builds an EGL display from a raw gbm_device pointer and
// initializes it.
func NewDisplay(gbmDevice unsafe.Pointer) (*Display, error) {
	disp := C.easydrm_get_platform_display(C.EGL_PLATFORM_GBM_KHR, gbmDevice, nil)
	if disp == C.EGLDisplay(C.EGL_NO_DISPLAY) {
		return nil, fmt.Errorf("DisplayCreationFailed: eglGetPlatformDisplay returned EGL_NO_DISPLAY")
	}
	var major, minor C.EGLint
	if C.eglInitialize(disp, &major, &minor) == C.EGL_FALSE {
		return nil, fmt.Errorf("DisplayCreationFailed: eglInitialize failed")
	}
	return &Display{disp: disp}, nil
}

// GetProcAddress resolves a GL/EGL symbol by name, for loading the GLES
// function table.
func (d *Display) GetProcAddress(name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return unsafe.Pointer(C.eglGetProcAddress((*C.char)(cname)))
}

// Terminate releases the display.
func (d *Display) Terminate() {
	if d.disp != C.EGLDisplay(C.EGL_NO_DISPLAY) {
		C.eglTerminate(d.disp)
	}
}

// Config is an opaque, comparable EGL frame-buffer configuration handle.
type Config struct {
	cfg    C.EGLConfig
	Id     int32
	Sample int32
}

// ChooseConfig enumerates every configuration EGL reports for this
// display and returns the one with the greatest EGL_SAMPLES value. Ties
// are resolved by last-seen — a later configuration with an equal sample
// count replaces an earlier one.
func ChooseConfig(d *Display) (Config, error) {
	var num C.EGLint
	if C.eglGetConfigs(d.disp, nil, 0, &num) == C.EGL_FALSE || num == 0 {
		return Config{}, fmt.Errorf("NoConfigFound: eglGetConfigs reported zero configurations")
	}
	cfgs := make([]C.EGLConfig, num)
	if C.eglGetConfigs(d.disp, &cfgs[0], num, &num) == C.EGL_FALSE {
		return Config{}, fmt.Errorf("NoConfigFound: eglGetConfigs failed")
	}

	sampleCounts := make([]int32, int(num))
	for i := 0; i < int(num); i++ {
		var samples C.EGLint
		C.eglGetConfigAttrib(d.disp, cfgs[i], C.EGL_SAMPLES, &samples)
		sampleCounts[i] = int32(samples)
	}
	idx := bestConfigIndex(sampleCounts)
	if idx < 0 {
		return Config{}, fmt.Errorf("NoConfigFound: no usable EGL configuration")
	}
	return Config{cfg: cfgs[idx], Sample: sampleCounts[idx]}, nil
}

// bestConfigIndex picks the greatest-sample-count entry in samples,
// last-seen wins on ties. Returns -1 for an empty input.
func bestConfigIndex(samples []int32) int {
	best := -1
	for i, s := range samples {
		if best < 0 || s >= samples[best] {
			best = i
		}
	}
	return best
}

// WindowSurface is an EGL surface bound to a GBM surface.
type WindowSurface struct {
	surf C.EGLSurface
}

// NewWindowSurface creates an EGL window surface over a GBM surface.
// Width and height must be non-zero.
func NewWindowSurface(d *Display, cfg Config, gbmSurface unsafe.Pointer, width, height int) (*WindowSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("EglSurfaceCreationFailed: zero-sized surface (%dx%d)", width, height)
	}
	surf := C.eglCreateWindowSurface(d.disp, cfg.cfg, C.NativeWindowType(gbmSurface), nil)
	if surf == C.EGLSurface(C.EGL_NO_SURFACE) {
		return nil, fmt.Errorf("EglSurfaceCreationFailed: eglCreateWindowSurface failed")
	}
	return &WindowSurface{surf: surf}, nil
}

// SwapBuffers performs the EGL buffer swap.
func (s *WindowSurface) SwapBuffers(d *Display) error {
	if C.eglSwapBuffers(d.disp, s.surf) == C.EGL_FALSE {
		return fmt.Errorf("eglSwapBuffers failed")
	}
	return nil
}

// Destroy releases the EGL surface.
func (s *WindowSurface) Destroy(d *Display) {
	C.eglDestroySurface(d.disp, s.surf)
}

// Context is an EGL rendering context.
type Context struct {
	ctx C.EGLContext
}

// NewContext creates an EGL context for cfg. OpenGL ES 3 is requested
// explicitly via EGL_CONTEXT_CLIENT_VERSION.
func NewContext(d *Display, cfg Config) (*Context, error) {
	attribs := []C.EGLint{
		C.EGL_CONTEXT_CLIENT_VERSION, 3,
		C.EGL_NONE,
	}
	ctx := C.eglCreateContext(d.disp, cfg.cfg, C.EGLContext(C.EGL_NO_CONTEXT), &attribs[0])
	if ctx == C.EGLContext(C.EGL_NO_CONTEXT) {
		return nil, fmt.Errorf("EglContextCreationFailed: eglCreateContext failed")
	}
	return &Context{ctx: ctx}, nil
}

// MakeCurrent binds this context to surf on display d.
func (c *Context) MakeCurrent(d *Display, surf *WindowSurface) error {
	if C.eglMakeCurrent(d.disp, surf.surf, surf.surf, c.ctx) == C.EGL_FALSE {
		return fmt.Errorf("MakeCurrentFailed: eglMakeCurrent failed")
	}
	return nil
}

// Destroy releases the EGL context.
func (c *Context) Destroy(d *Display) {
	C.eglDestroyContext(d.disp, c.ctx)
}

// Fence is an EGL sync object paired with a duplicated native kernel
// fence descriptor, created immediately after a buffer swap and attached
// to the next atomic commit as IN_FENCE_FD.
type Fence struct {
	sync C.EGLSyncKHR
	fd   int
}

// CreateFence creates a new native fence sync and extracts its kernel
// descriptor. A descriptor less than zero is a fatal commit-level error.
func CreateFence(d *Display) (*Fence, error) {
	sync := C.easydrm_create_sync_fence(d.disp)
	if sync == C.EGLSyncKHR(C.EGL_NO_SYNC_KHR) {
		return nil, fmt.Errorf("eglCreateSyncKHR failed")
	}
	fd := int(C.easydrm_dup_native_fence_fd(d.disp, sync))
	if fd < 0 {
		C.easydrm_destroy_sync(d.disp, sync)
		return nil, fmt.Errorf("eglDupNativeFenceFDANDROID returned invalid descriptor %d", fd)
	}
	return &Fence{sync: sync, fd: fd}, nil
}

// FD returns the duplicated native fence descriptor.
func (f *Fence) FD() int { return f.fd }

// DestroySync destroys the EGL sync object. It does not close FD(); the
// caller owns that descriptor once handed off to the kernel as
// IN_FENCE_FD.
func (f *Fence) DestroySync(d *Display) {
	if f.sync != C.EGLSyncKHR(C.EGL_NO_SYNC_KHR) {
		C.easydrm_destroy_sync(d.disp, f.sync)
		f.sync = C.EGLSyncKHR(C.EGL_NO_SYNC_KHR)
	}
}
