package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rockNroll87q/DetectingAwarenessfMRIstimulation/engine"
)

var runFlags struct {
	date, operator, subject, age, gender string
	tr, volumes, skip, sync              string
	scanner, testMode, dialog            bool
	fullscreen                           bool
	seed                                 uint64
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scanning session",
	Long: `Collects the session details (from flags, or from the setup dialog with
--dialog), creates the output folder and presents the block design.

Press escape or q during the run to abort. In test mode the scanner's sync
pulses are emulated every TR.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.date, "date", "", "Session date (YYYY-MM-DD, default today)")
	f.StringVar(&runFlags.operator, "operator", "", "Operator initials")
	f.StringVar(&runFlags.subject, "subject", "", "Subject code")
	f.StringVar(&runFlags.age, "age", "", "Subject age")
	f.StringVar(&runFlags.gender, "gender", "", "Subject gender (male|female)")
	f.BoolVar(&runFlags.scanner, "scanner", true, "Wait for scanner sync pulses")
	f.StringVar(&runFlags.tr, "tr", "", "Repetition time in seconds")
	f.StringVar(&runFlags.volumes, "volumes", "", "Number of volumes")
	f.StringVar(&runFlags.skip, "skip", "", "Volumes without a sync pulse at scan start")
	f.StringVar(&runFlags.sync, "sync", "", "Sync key sent by the scanner")
	f.BoolVar(&runFlags.testMode, "test-mode", false, "Emulate scanner sync pulses")
	f.BoolVar(&runFlags.dialog, "dialog", false, "Edit the session details in a setup dialog")
	f.BoolVar(&runFlags.fullscreen, "fullscreen", false, "Run fullscreen")
	f.Uint64Var(&runFlags.seed, "seed", 0, "Block order seed (0 = random)")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := engine.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("fullscreen") {
		cfg.Fullscreen = runFlags.fullscreen
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = runFlags.seed
	}

	info := engine.DefaultSessionInfo()
	if err := info.LoadSessionCache(engine.SessionCacheFile); err != nil {
		logger.Warn("ignoring session cache", zap.Error(err))
	}
	applySessionFlags(cmd.Flags(), info)

	if runFlags.dialog {
		ok, err := engine.RunSessionDialog(info)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("session dialog cancelled")
			return nil
		}
	}
	if err := info.Validate(); err != nil {
		return err
	}
	if err := info.SaveSessionCache(engine.SessionCacheFile); err != nil {
		logger.Warn("failed to save session cache", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("starting session",
		zap.String("subject", info.SubjectCode),
		zap.String("id", info.ID),
		zap.Bool("scanner", info.Scanner),
		zap.String("mode", info.Mode))
	return engine.Run(ctx, cfg, info, logger)
}

// applySessionFlags overrides info with the flags given on the command line.
func applySessionFlags(flags *pflag.FlagSet, info *engine.SessionInfo) {
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("date", &info.Date, runFlags.date)
	set("operator", &info.Operator, runFlags.operator)
	set("subject", &info.SubjectCode, runFlags.subject)
	set("age", &info.Age, runFlags.age)
	set("gender", &info.Gender, runFlags.gender)
	set("tr", &info.TR, runFlags.tr)
	set("volumes", &info.Volumes, runFlags.volumes)
	set("skip", &info.Skip, runFlags.skip)
	set("sync", &info.Sync, runFlags.sync)
	if flags.Changed("scanner") {
		info.Scanner = runFlags.scanner
	}
	if flags.Changed("test-mode") {
		if runFlags.testMode {
			info.Mode = engine.ModeTest
		} else {
			info.Mode = engine.ModeScan
		}
	}
}
