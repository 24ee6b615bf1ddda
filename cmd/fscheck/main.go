// fscheck mounts a host directory as the SDMC archive and drives a full
// write/read/size round trip through the IPC command buffers, verifying
// the payload by checksum. It exercises the same dispatch path the
// emulated guest uses.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ctremu/horizonfs/internal/archive"
	"github.com/ctremu/horizonfs/internal/config"
	"github.com/ctremu/horizonfs/internal/kernel"
	"github.com/ctremu/horizonfs/internal/memory"
	"github.com/lmittmann/tint"
)

const checkRAMSize = 16 << 20

//nolint:gochecknoglobals
var (
	ExitCode = 0

	configFile  = flag.String("config", "", "env file with HORIZONFS_* settings")
	sdmcRoot    = flag.String("sdmc", "", "host directory backing the SDMC archive")
	payloadSize = flag.Uint("size", 1<<20, "round-trip payload size in bytes")
)

func setupLogging() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	))
}

func loadSettings() (config.Settings, error) {
	settings := config.Settings{SDMCRoot: *sdmcRoot}

	if *configFile != "" {
		configHandler := config.NewHandler(&config.GodotenvProvider{})

		loaded, err := configHandler.Load(*configFile)
		if err != nil {
			return config.Settings{}, err
		}
		settings = loaded

		if *sdmcRoot != "" {
			settings.SDMCRoot = *sdmcRoot
		}
	}

	return settings, nil
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	flag.Parse()
	setupLogging()

	settings, err := loadSettings()
	if err != nil {
		slog.Error("Failed to load configuration.", "err", err)
		ExitCode = 1

		return
	}

	if settings.SDMCRoot == "" {
		slog.Error("No SDMC root given; use -sdmc or a config file.")
		ExitCode = 1

		return
	}

	ram := memory.NewFlatRAM(memory.FCRAMBase, checkRAMSize)
	manager := archive.NewManager(kernel.NewPool(), ram)

	manager.Init(settings)
	defer manager.Shutdown()

	app := NewApp(manager, ram, uint32(*payloadSize))

	if err := app.Run(); err != nil {
		slog.Error("Check failed.", "err", err)
		ExitCode = 1

		return
	}

	slog.Info("All checks passed.")
}
