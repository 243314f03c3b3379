package prism

// LifetimeComponent removes its entity after a set duration. Runtime-only:
// systems attach it to spawned entities, scene files do not declare it.
type LifetimeComponent struct {
	TimeLeft float32
}

type LifecycleModule struct{}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	cmd.UseSystem(System(lifetimeSystem).InStage(PostUpdate))
}

func lifetimeSystem(scene *SceneState, time *Time, log *Logger) {
	if scene.Loaded == nil {
		return
	}
	dt := float32(time.Dt.Seconds())
	if dt <= 0 {
		return
	}

	// Collect first: destroying entities mid-query would invalidate the
	// iteration.
	var expired []EntityId
	MakeQuery1[LifetimeComponent](scene.Loaded.World).Map(func(eid EntityId, lt *LifetimeComponent) bool {
		lt.TimeLeft -= dt
		if lt.TimeLeft <= 0 {
			expired = append(expired, eid)
		}
		return true
	})
	for _, eid := range expired {
		(*log).Debugf("lifetime expired for entity %q", scene.Loaded.World.Name(eid))
		scene.Loaded.World.DestroyEntity(eid)
	}
}
