package main

import (
	_ "embed"
	"flag"
	"fmt"
	"os"

	"github.com/prism3d/prism"
)

//go:embed default_scene.yaml
var defaultScene []byte

func main() {
	configPath := flag.String("config", "", "engine config file (TOML)")
	headless := flag.Bool("headless", false, "load and validate the scene without opening a window")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [scene.yaml]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := prism.DefaultEngineConfig()
	if *configPath != "" {
		var err error
		cfg, err = prism.LoadEngineConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *headless {
		cfg.Headless = true
	}

	app := prism.NewApp().UseModules(
		prism.LoggingModule{Name: "prism", Debug: cfg.Debug},
		prism.TimeModule{},
		prism.AssetRegistryModule{},
	)
	log := app.Logger()

	var scene *prism.SceneFile
	var err error
	if path := flag.Arg(0); path != "" {
		scene, err = prism.ParseSceneFile(path)
	} else {
		scene, err = prism.ParseScene(defaultScene)
	}
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	reg, ok := prism.Resource[prism.AssetRegistry](app)
	if !ok {
		panic("asset registry module not installed")
	}

	loaded, report := prism.LoadScene(scene, reg, log)
	for _, issue := range report.Issues {
		log.Warnf("scene: %v", issue)
	}
	if report.Failed() {
		log.Errorf("scene rejected: %v", report.Err())
		os.Exit(1)
	}

	app.UseModules(prism.SceneModule{Scene: loaded})

	if cfg.Headless {
		log.Infof("headless: scene validated")
		return
	}

	app.UseModules(
		prism.ClientModule{
			WindowWidth:  cfg.Window.Width,
			WindowHeight: cfg.Window.Height,
			WindowTitle:  cfg.Window.Title,
		},
		prism.InputModule{},
		prism.FlyingCameraModule{},
		prism.LifecycleModule{},
		prism.PhysicsBoundaryModule{},
	)
	app.Run()
}
