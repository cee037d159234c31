/*
Penumbra is a deferred shading renderer with cascaded shadow maps.
This binary loads the configuration, builds the demo scene and runs
the frame loop until the window closes.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/penumbra/engine"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
)

func main() {
	cfg, err := config.Load("penumbra.toml")
	if err != nil {
		core.LogFatal("invalid configuration: %v", err)
		os.Exit(1)
	}

	app, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = app.Shutdown()
	}()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
