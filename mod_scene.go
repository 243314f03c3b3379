package prism

// SceneState holds the world and render context of the currently loaded
// scene. Nil Loaded means nothing to render; frames are no-ops.
type SceneState struct {
	Loaded *LoadedScene
}

// SceneModule installs a pre-loaded scene as the active one.
type SceneModule struct {
	Scene *LoadedScene
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	app.addResources(&SceneState{Loaded: m.Scene})
}
