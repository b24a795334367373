// Package easydrm is a minimal, compositor-free rendering framework for
// Linux: it drives one or more physical displays directly through the
// kernel's DRM/KMS interface, with no X11 or Wayland between the
// application and the hardware. It suits fullscreen workloads — kiosks,
// embedded UIs, custom compositors, signage.
//
// A caller builds an Orchestrator, which opens a DRM device, discovers
// connected monitors, and allocates each one a CRTC and primary plane
// (and, when available, a cursor plane). Each Monitor owns a GLES
// rendering context bound to a GBM scanout surface.
//
// The expected render loop looks like:
//
//	orch, err := easydrm.NewEmpty(easydrm.Options{})
//	// ...
//	for {
//		for _, m := range orch.Monitors() {
//			if !m.CanRender() {
//				continue
//			}
//			if err := m.MakeCurrent(); err == nil {
//				gl := m.GL()
//				gl.ClearColor(0, 0, 0, 1)
//				gl.Clear(0x00004000) // GL_COLOR_BUFFER_BIT
//			}
//		}
//		if err := orch.SwapBuffers(); err != nil {
//			// ...
//		}
//		if err := orch.PollEvents(); err != nil {
//			// ...
//		}
//	}
//
// Host rendering code, color-space helpers, and the OpenGL ES function
// table's generator are external collaborators this package assumes
// rather than implements; see internal/glesfn's package doc for the
// function table's scope.
package easydrm
