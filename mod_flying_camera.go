package prism

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyCamera holds the controller state for free-flight main camera movement.
// Yaw and pitch are degrees; the controller rewrites the camera entity's
// transform rotation wholesale each frame.
type FlyCamera struct {
	Speed       float32
	Sensitivity float32
	Yaw         float32
	Pitch       float32

	initialized bool
}

// FlyingCameraModule drives the scene's main camera with WASD plus mouse
// look. Tab toggles mouse capture. Requires ClientModule and InputModule.
type FlyingCameraModule struct {
	Speed       float32
	Sensitivity float32
}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	speed := m.Speed
	if speed == 0 {
		speed = 5.0
	}
	sensitivity := m.Sensitivity
	if sensitivity == 0 {
		sensitivity = 0.1
	}
	cmd.AddResources(&FlyCamera{Speed: speed, Sensitivity: sensitivity})
	cmd.UseSystem(System(flyingCameraSystem).InStage(Update))
}

func flyingCameraSystem(scene *SceneState, input *Input, time *Time, fly *FlyCamera) {
	if scene.Loaded == nil || scene.Loaded.MainCamera == NoEntity {
		return
	}
	world := scene.Loaded.World
	tr, ok := GetComponent[TransformComponent](world, scene.Loaded.MainCamera)
	if !ok {
		return
	}

	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	if !fly.initialized {
		// Seed yaw and pitch from the scene-authored orientation so capture
		// does not snap the view.
		forward := tr.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
		fly.Pitch = mgl32.RadToDeg(float32(math.Asin(float64(forward.Y()))))
		fly.Yaw = mgl32.RadToDeg(float32(math.Atan2(float64(-forward.X()), float64(-forward.Z()))))
		fly.initialized = true
	}

	if input.MouseCaptured {
		fly.Yaw -= float32(input.MouseDeltaX) * fly.Sensitivity
		fly.Pitch -= float32(input.MouseDeltaY) * fly.Sensitivity
	}
	if fly.Pitch > 89 {
		fly.Pitch = 89
	}
	if fly.Pitch < -89 {
		fly.Pitch = -89
	}

	rotation := mgl32.QuatRotate(mgl32.DegToRad(fly.Yaw), mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(mgl32.DegToRad(fly.Pitch), mgl32.Vec3{1, 0, 0}))
	tr.Rotation = rotation.Normalize()

	dt := float32(time.Dt.Seconds())
	if dt <= 0 {
		return
	}

	forward := tr.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up := mgl32.Vec3{0, 1, 0}

	var move mgl32.Vec3
	if input.Pressed[KeyW] {
		move = move.Add(forward)
	}
	if input.Pressed[KeyS] {
		move = move.Sub(forward)
	}
	if input.Pressed[KeyD] {
		move = move.Add(right)
	}
	if input.Pressed[KeyA] {
		move = move.Sub(right)
	}
	if input.Pressed[KeySpace] {
		move = move.Add(up)
	}
	if input.Pressed[KeyControl] {
		move = move.Sub(up)
	}

	if move.Len() > 0 {
		speed := fly.Speed
		if input.Pressed[KeyShift] {
			speed *= 3
		}
		tr.Position = tr.Position.Add(move.Normalize().Mul(speed * dt))
	}
}
