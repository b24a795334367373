package easydrm

import (
	"fmt"
	"unsafe"

	"github.com/hyprside/easydrm/internal/egl"
	"github.com/hyprside/easydrm/internal/gbmdevice"
	"github.com/hyprside/easydrm/internal/glesfn"
)

// GLESContext is an EGL display bound to a GBM device, a window surface
// created from a GBM surface, an EGL context made current on that
// surface, and a loaded OpenGL ES 3.3 function table. A Monitor owns
// exactly one, created from its chosen mode at setup time.
type GLESContext struct {
	display    *egl.Display
	config     egl.Config
	gbmSurface *gbmdevice.Surface
	winSurface *egl.WindowSurface
	context    *egl.Context
	gl         *glesfn.Table
	width      int
	height     int
}

// newGLESContext performs, in order: EGL display creation from the GBM
// device, config selection, GBM surface creation, EGL window-surface
// creation, EGL context creation and make-current, and GL function
// table loading.
func newGLESContext(gbmDev *gbmdevice.Device, mode Mode) (*GLESContext, error) {
	disp, err := egl.NewDisplay(gbmDev.NativePointer())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisplayCreationFailed, err)
	}

	cfg, err := egl.ChooseConfig(disp)
	if err != nil {
		disp.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrNoConfigFound, err)
	}

	w, h := mode.Size()
	gbmSurface, err := gbmDev.CreateSurface(uint32(w), uint32(h))
	if err != nil {
		disp.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrGbmSurfaceCreationFailed, err)
	}

	winSurface, err := egl.NewWindowSurface(disp, cfg, gbmSurface.NativePointer(), w, h)
	if err != nil {
		gbmSurface.Destroy()
		disp.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrEglSurfaceCreationFailed, err)
	}

	ctx, err := egl.NewContext(disp, cfg)
	if err != nil {
		winSurface.Destroy(disp)
		gbmSurface.Destroy()
		disp.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrEglContextCreationFailed, err)
	}

	if err := ctx.MakeCurrent(disp, winSurface); err != nil {
		ctx.Destroy(disp)
		winSurface.Destroy(disp)
		gbmSurface.Destroy()
		disp.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrMakeCurrentFailed, err)
	}

	gl := glesfn.Load(disp.GetProcAddress)

	return &GLESContext{
		display:    disp,
		config:     cfg,
		gbmSurface: gbmSurface,
		winSurface: winSurface,
		context:    ctx,
		gl:         gl,
		width:      w,
		height:     h,
	}, nil
}

// MakeCurrent makes this context's EGL context current on its surface.
func (g *GLESContext) MakeCurrent() error {
	if err := g.context.MakeCurrent(g.display, g.winSurface); err != nil {
		return fmt.Errorf("%w: %v", ErrMakeCurrentFailed, err)
	}
	return nil
}

// SwapBuffers performs the EGL buffer swap, then locks and returns the
// GBM front buffer it produced.
func (g *GLESContext) SwapBuffers() (*gbmdevice.BufferObject, error) {
	if err := g.winSurface.SwapBuffers(g.display); err != nil {
		return nil, err
	}
	return g.gbmSurface.LockFrontBuffer()
}

// GetProcAddress resolves a GL/EGL symbol via this context's display.
func (g *GLESContext) GetProcAddress(name string) unsafe.Pointer {
	return g.display.GetProcAddress(name)
}

// GL returns the loaded function table.
func (g *GLESContext) GL() *glesfn.Table { return g.gl }

// createFence creates a new EGL native fence sync on this context's
// display, for attaching as IN_FENCE_FD on the next atomic commit.
func (g *GLESContext) createFence() (*egl.Fence, error) {
	return egl.CreateFence(g.display)
}

// Close releases the EGL context, surface, GBM surface, and display, in
// reverse order of creation.
func (g *GLESContext) Close() {
	g.context.Destroy(g.display)
	g.winSurface.Destroy(g.display)
	g.gbmSurface.Destroy()
	g.display.Terminate()
}
