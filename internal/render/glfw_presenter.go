package render

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// glfwPresenter is the windowed presenter backend: it owns a GLFW
// window and swap-chain-adjacent present call, matching the teacher
// pack's shiny/gldriver windowing glue (glfw.Init, WindowHint,
// CreateWindow, MakeContextCurrent, SwapBuffers) adapted to Axiom's
// Presenter contract instead of shiny's screen.Window.
type glfwPresenter struct {
	log *zap.Logger
	win *glfw.Window

	width, height int
	resized       bool
}

// NewGLFWPresenter creates an OS window of the given size. Must be
// called from the render thread's dedicated OS thread (glfw is not
// safe to drive from arbitrary goroutines), matching the single
// render-thread topology in §5.
func NewGLFWPresenter(width, height int, title string, log *zap.Logger) (Presenter, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("render: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("render: create window: %w", err)
	}
	win.MakeContextCurrent()

	p := &glfwPresenter{log: log, win: win, width: width, height: height}
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		p.width, p.height = w, h
		p.resized = true
	})
	return p, nil
}

func (p *glfwPresenter) AcquireFrame() (int, int, SurfaceErrorKind) {
	if p.win.ShouldClose() {
		// Treat an OS-level close request as a fatal presenter
		// condition rather than inventing a fifth error category: the
		// process-level exit-code handling in cmd/axiom owns shutdown.
		return p.width, p.height, SurfaceErrorOutOfMemory
	}
	glfw.PollEvents()
	w, h := p.width, p.height
	if w <= 0 || h <= 0 {
		return w, h, SurfaceErrorOutdated
	}
	return w, h, SurfaceErrorNone
}

func (p *glfwPresenter) Present() {
	p.win.SwapBuffers()
}

func (p *glfwPresenter) Reconfigure(width, height int) {
	p.width, p.height = width, height
	p.resized = false
}

func (p *glfwPresenter) Close() {
	p.win.Destroy()
	glfw.Terminate()
}
