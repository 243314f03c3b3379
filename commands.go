package prism

// Commands is the handle modules and systems get for mutating the App
// itself: installing resources, scheduling systems, stopping the loop.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

func (cmd *Commands) Quit() {
	cmd.app.Quit()
}
