package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Zyko0/go-sdl3/bin/binimg"
	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/Zyko0/go-sdl3/bin/binttf"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rockNroll87q/DetectingAwarenessfMRIstimulation/engine"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	defer binsdl.Load().Unload()
	defer binimg.Load().Unload()
	defer binttf.Load().Unload()

	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	cfg, err := engine.Load(engine.DefaultConfigFile)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	info := engine.DefaultSessionInfo()
	if err := info.LoadSessionCache(engine.SessionCacheFile); err != nil {
		logger.Warn("ignoring session cache", zap.Error(err))
	}

	ok, err := engine.RunSessionDialog(info)
	if err != nil {
		logger.Error("session dialog failed", zap.Error(err))
		return 1
	}
	if !ok {
		return 0
	}
	if err := info.SaveSessionCache(engine.SessionCacheFile); err != nil {
		logger.Warn("failed to save session cache", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx, cfg, info, logger); err != nil {
		logger.Error("session failed", zap.Error(err))
		return 1
	}
	return 0
}
