package easydrm

import "errors"

// Sentinel errors raised by Monitor allocation, setup, and the GLES
// Context construction sequence. Callers compare with errors.Is; discovery
// and hot-plug treat every one of these as "skip this connector, keep
// going" except the GLES Context family, which is fatal to that Monitor
// but still non-fatal to the orchestrator as a whole.
var (
	// ErrNotConnected is returned when a connector's reported connection
	// state is not Connected.
	ErrNotConnected = errors.New("easydrm: connector is not connected")

	// ErrNoCRTCFound is returned when no candidate CRTC for a connector's
	// encoders is both free and accepts a GETCRTC query.
	ErrNoCRTCFound = errors.New("easydrm: no usable CRTC found for connector")

	// ErrNoPrimaryPlaneFound is returned when no free plane advertises
	// type Primary and a possible-CRTC mask including the chosen CRTC.
	ErrNoPrimaryPlaneFound = errors.New("easydrm: no primary plane found for CRTC")

	// ErrNoModesFound is returned when a connected connector reports zero
	// modes.
	ErrNoModesFound = errors.New("easydrm: connector reports no modes")

	// ErrDisplayCreationFailed is returned when EGL display creation or
	// initialization fails.
	ErrDisplayCreationFailed = errors.New("easydrm: EGL display creation failed")

	// ErrNoConfigFound is returned when EGL reports no usable frame
	// buffer configuration.
	ErrNoConfigFound = errors.New("easydrm: no suitable EGL configuration found")

	// ErrGbmSurfaceCreationFailed is returned when gbm_surface_create
	// fails.
	ErrGbmSurfaceCreationFailed = errors.New("easydrm: GBM surface creation failed")

	// ErrEglSurfaceCreationFailed is returned when the EGL window surface
	// cannot be created, including a zero-sized mode.
	ErrEglSurfaceCreationFailed = errors.New("easydrm: EGL window surface creation failed")

	// ErrEglContextCreationFailed is returned when eglCreateContext
	// fails.
	ErrEglContextCreationFailed = errors.New("easydrm: EGL context creation failed")

	// ErrMakeCurrentFailed is returned when eglMakeCurrent fails.
	ErrMakeCurrentFailed = errors.New("easydrm: eglMakeCurrent failed")
)
