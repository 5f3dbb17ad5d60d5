package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"enviro-uploader/internal/config"
	"enviro-uploader/internal/logging"
	"enviro-uploader/internal/runtime"
	"enviro-uploader/internal/ui/headless"
)

var BuildVersion = "dev"

func main() {
	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts, err := config.ParseOptions()
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	saved, loadErr := config.LoadSettings()
	if loadErr == nil {
		opts = config.MergeOptionsWithSettings(opts, saved)
	}

	lock, lockedByOther, lockErr := acquireInstanceLock()
	if lockErr != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize single-instance lock:", lockErr)
		os.Exit(2)
	}
	if lockedByOther {
		fmt.Fprintln(os.Stderr, "Enviro Uploader is already running.")
		os.Exit(1)
	}
	defer func() {
		_ = lock.Release()
	}()

	logger := logging.New(opts.Debug)
	defer func() {
		_ = logger.Close()
	}()
	if err := logger.EnableFilePersistence(0); err != nil {
		logger.Warn("log file persistence unavailable", logging.Field("error", err.Error()))
	}

	if err := config.ValidateRequired(opts); err == nil {
		if saveErr := config.SaveSettings(config.SettingsFromOptions(opts)); saveErr != nil {
			logger.Warn("could not persist settings", logging.Field("error", saveErr.Error()))
		}
	}

	if opts.TUI {
		headless.Run(rootCtx, BuildVersion, opts, logger)
		return
	}

	service, err := runtime.NewService(opts, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Info("starting uploader", logging.Field("version", BuildVersion))
	if runErr := service.RunContext(rootCtx); runErr != nil {
		logger.Error("uploader stopped", logging.Field("error", runErr.Error()))
		os.Exit(1)
	}
}
