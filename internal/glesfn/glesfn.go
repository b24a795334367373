// Package glesfn loads a representative OpenGL ES 3.3 function table plus
// the one extension entry point this framework's external-image plumbing
// needs: glEGLImageTargetTexture2DOES, shared by OES_EGL_image and
// OES_EGL_image_external. HasExtensionFunc is a generic name-presence
// probe usable against any entry-point name (including those of
// EXT_memory_object_fd and EXT_semaphore_fd), but this package wires a typed call surface only
// for the entry point above — the fence path is EGL-side and has no use
// for GL-side memory-object or semaphore imports.
//
// In the upstream project this table is produced by a build-time code
// generator against the full GLES3.3 registry; that generator and its
// complete surface are an external, given input (see the framework's
// design notes). This package stands in for its product: enough of the
// core entry points for a minimal render loop to run, loaded the same
// way the generated table would be — by resolving each symbol through
// the platform's procedure-address lookup and calling it as a typed C
// function pointer.
package glesfn

/*
#include <stdlib.h>
#include <GLES3/gl3.h>

static void easydrm_glClearColor(void *p, GLfloat r, GLfloat g, GLfloat b, GLfloat a) {
    ((void (*)(GLfloat, GLfloat, GLfloat, GLfloat))p)(r, g, b, a);
}
static void easydrm_glClear(void *p, GLbitfield mask) {
    ((void (*)(GLbitfield))p)(mask);
}
static void easydrm_glViewport(void *p, GLint x, GLint y, GLsizei w, GLsizei h) {
    ((void (*)(GLint, GLint, GLsizei, GLsizei))p)(x, y, w, h);
}
static void easydrm_glUseProgram(void *p, GLuint program) {
    ((void (*)(GLuint))p)(program);
}
static void easydrm_glDrawArrays(void *p, GLenum mode, GLint first, GLsizei count) {
    ((void (*)(GLenum, GLint, GLsizei))p)(mode, first, count);
}
static void easydrm_glFlush(void *p) {
    ((void (*)(void))p)();
}
static void easydrm_glFinish(void *p) {
    ((void (*)(void))p)();
}
static GLenum easydrm_glGetError(void *p) {
    return ((GLenum (*)(void))p)();
}
static void easydrm_glEGLImageTargetTexture2DOES(void *p, GLenum target, void *image) {
    ((void (*)(GLenum, void *))p)(target, image);
}
*/
import "C"

import "unsafe"

// ProcAddressFunc resolves a GL/EGL symbol name to its address, backed in
// production by an EGL display's eglGetProcAddress.
type ProcAddressFunc func(name string) unsafe.Pointer

// Table is a loaded, per-context set of GLES function pointers. It must
// only be called while its owning EGL context is current.
type Table struct {
	clearColor   unsafe.Pointer
	clear        unsafe.Pointer
	viewport     unsafe.Pointer
	useProgram   unsafe.Pointer
	drawArrays   unsafe.Pointer
	flush        unsafe.Pointer
	finish       unsafe.Pointer
	getError     unsafe.Pointer
	imageTarget2D unsafe.Pointer // GL_OES_EGL_image / GL_OES_EGL_image_external
}

// GLES constants a caller commonly needs alongside this table.
const (
	ColorBufferBit   uint32 = 0x00004000
	DepthBufferBit   uint32 = 0x00000100
	StencilBufferBit uint32 = 0x00000400
	Triangles        uint32 = 0x0004
	TextureExternalOES uint32 = 0x8D65
	Texture2D        uint32 = 0x0DE1
)

// Load resolves every entry point this table exposes via getProcAddress.
// A nil resolved pointer is left nil — callers must check before use the
// same way a generated table would surface an unsupported extension.
func Load(getProcAddress ProcAddressFunc) *Table {
	return &Table{
		clearColor:    getProcAddress("glClearColor"),
		clear:         getProcAddress("glClear"),
		viewport:      getProcAddress("glViewport"),
		useProgram:    getProcAddress("glUseProgram"),
		drawArrays:    getProcAddress("glDrawArrays"),
		flush:         getProcAddress("glFlush"),
		finish:        getProcAddress("glFinish"),
		getError:      getProcAddress("glGetError"),
		imageTarget2D: getProcAddress("glEGLImageTargetTexture2DOES"),
	}
}

// ClearColor sets the clear color.
func (t *Table) ClearColor(r, g, b, a float32) {
	C.easydrm_glClearColor(t.clearColor, C.GLfloat(r), C.GLfloat(g), C.GLfloat(b), C.GLfloat(a))
}

// Clear clears the buffers named by mask (a bitwise-OR of *BufferBit).
func (t *Table) Clear(mask uint32) {
	C.easydrm_glClear(t.clear, C.GLbitfield(mask))
}

// Viewport sets the viewport transform.
func (t *Table) Viewport(x, y, w, h int32) {
	C.easydrm_glViewport(t.viewport, C.GLint(x), C.GLint(y), C.GLsizei(w), C.GLsizei(h))
}

// UseProgram binds the active shader program.
func (t *Table) UseProgram(program uint32) {
	C.easydrm_glUseProgram(t.useProgram, C.GLuint(program))
}

// DrawArrays issues a non-indexed draw call.
func (t *Table) DrawArrays(mode uint32, first, count int32) {
	C.easydrm_glDrawArrays(t.drawArrays, C.GLenum(mode), C.GLint(first), C.GLsizei(count))
}

// Flush flushes the GL command stream.
func (t *Table) Flush() { C.easydrm_glFlush(t.flush) }

// Finish blocks until all submitted GL commands complete.
func (t *Table) Finish() { C.easydrm_glFinish(t.finish) }

// GetError returns and clears the oldest recorded GL error code.
func (t *Table) GetError() uint32 {
	return uint32(C.easydrm_glGetError(t.getError))
}

// EGLImageTargetTexture2DOES binds an EGLImage (imported via
// OES_EGL_image / OES_EGL_image_external) as the source of the currently
// bound 2D or external texture.
func (t *Table) EGLImageTargetTexture2DOES(target uint32, image unsafe.Pointer) {
	C.easydrm_glEGLImageTargetTexture2DOES(t.imageTarget2D, C.GLenum(target), image)
}

// HasExtensionFunc reports whether a named optional entry point resolved
// to a non-nil address, e.g. for probing EXT_memory_object_fd /
// EXT_semaphore_fd support before relying on it.
func HasExtensionFunc(getProcAddress ProcAddressFunc, name string) bool {
	return getProcAddress(name) != nil
}
