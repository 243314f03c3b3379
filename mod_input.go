package prism

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyA int = iota
	KeyD
	KeyE
	KeyQ
	KeyS
	KeyW
	KeySpace
	KeyEscape
	KeyTab
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyShift
	KeyControl
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
	keyCount
)

var keyToGlfw = map[int]glfw.Key{
	KeyA:       glfw.KeyA,
	KeyD:       glfw.KeyD,
	KeyE:       glfw.KeyE,
	KeyQ:       glfw.KeyQ,
	KeyS:       glfw.KeyS,
	KeyW:       glfw.KeyW,
	KeySpace:   glfw.KeySpace,
	KeyEscape:  glfw.KeyEscape,
	KeyTab:     glfw.KeyTab,
	KeyLeft:    glfw.KeyLeft,
	KeyRight:   glfw.KeyRight,
	KeyUp:      glfw.KeyUp,
	KeyDown:    glfw.KeyDown,
	KeyShift:   glfw.KeyLeftShift,
	KeyControl: glfw.KeyLeftControl,
}

// Input is the per-frame keyboard and mouse snapshot.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool
}

// InputModule polls window input each frame. Requires ClientModule.
type InputModule struct{}

func (InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	cmd.UseSystem(System(inputSystem).InStage(PreUpdate))
}

func inputSystem(window *WindowState, input *Input) {
	// Event polling happens in the window events system; this one samples.
	for key, glfwKey := range keyToGlfw {
		pressed := window.windowGlfw.GetKey(glfwKey) == glfw.Press
		input.JustPressed[key] = pressed && !input.Pressed[key]
		input.JustReleased[key] = !pressed && input.Pressed[key]
		input.Pressed[key] = pressed
	}

	for btn, glfwBtn := range map[int]glfw.MouseButton{
		MouseButtonLeft:   glfw.MouseButtonLeft,
		MouseButtonRight:  glfw.MouseButtonRight,
		MouseButtonMiddle: glfw.MouseButtonMiddle,
	} {
		pressed := window.windowGlfw.GetMouseButton(glfwBtn) == glfw.Press
		input.JustPressed[btn] = pressed && !input.Pressed[btn]
		input.JustReleased[btn] = !pressed && input.Pressed[btn]
		input.Pressed[btn] = pressed
	}

	mx, my := window.windowGlfw.GetCursorPos()
	if input.MouseCaptured {
		input.MouseDeltaX = mx - input.MouseX
		input.MouseDeltaY = my - input.MouseY
		window.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		input.MouseDeltaX = 0
		input.MouseDeltaY = 0
		window.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	input.MouseX = mx
	input.MouseY = my
}
