package prism

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the engine-wide logging interface. Installed as an App resource
// so systems and the scene loader can take it as a dependency.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// zapLogger adapts a zap SugaredLogger to the engine interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds the default production logger. Debug enables development
// encoding and debug-level output.
func NewLogger(name string, debug bool) (Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: base.Named(name).Sugar()}, nil
}

func (l *zapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

type nopLogger struct{}

// NewNopLogger returns a logger that drops everything. Used in tests and as
// the fallback when no LoggingModule is installed.
func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// LoggingModule installs a named zap-backed logger as a resource.
type LoggingModule struct {
	Name  string
	Debug bool
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	name := m.Name
	if name == "" {
		name = "prism"
	}
	logger, err := NewLogger(name, m.Debug)
	if err != nil {
		panic(err)
	}
	app.addResources(&logger)
}

// Logger returns the installed Logger resource, or a no-op logger when none
// is present. Safe to call at any time; never returns nil.
func (app *App) Logger() Logger {
	if app == nil || app.resources == nil {
		return NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(*Logger); ok {
			return *l
		}
	}
	return NewNopLogger()
}
