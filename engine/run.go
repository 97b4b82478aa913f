package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"
	"go.uber.org/zap"
)

const audioBackend = "SDL3 audio stream (S16, stereo, 44100 Hz)"

// Run sets up the output folder, session log, window, audio, trigger and
// markers, then presents the block design. Failures inside the block design
// are logged and the frame and event data are still saved.
func Run(ctx context.Context, cfg *Config, info *SessionInfo, console *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := info.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	conds, err := cfg.Conditions()
	if err != nil {
		return err
	}
	rng, seed := NewRand(cfg.Seed)
	order := BuildBlockOrder(conds, cfg.BlocksPerCond, rng)

	outDir, err := CreateOutFolder(filepath.Join(cfg.OutputDir, info.FolderName()))
	if err != nil {
		return err
	}

	clock := NewSystemClock()
	log, closeLog, err := NewSessionLogger(filepath.Join(outDir, cfg.LogName), clock.Start(), console)
	if err != nil {
		return err
	}
	defer closeLog()

	LogSessionHeader(log, info, outDir, audioBackend)
	log.Info(fmt.Sprintf("Block order seed: %d", seed))

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("SDL init: %w", err)
	}
	defer sdl.Quit()

	if err := ttf.Init(); err != nil {
		return fmt.Errorf("TTF init: %w", err)
	}
	defer ttf.Quit()

	windowFlags := sdl.WINDOW_RESIZABLE
	if cfg.Fullscreen {
		windowFlags |= sdl.WINDOW_FULLSCREEN
	}
	window, renderer, err := sdl.CreateWindowAndRenderer("vsimagery", cfg.ScreenWidth, cfg.ScreenHeight, windowFlags)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	defer renderer.Destroy()

	if cfg.VSync {
		renderer.SetVSync(1)
	} else {
		renderer.SetVSync(0)
	}

	fontPath := cfg.FontFile
	if fontPath == "" {
		fontPath = GetDefaultFontPath()
	}
	var font *ttf.Font
	if fontPath != "" {
		font, err = ttf.OpenFont(fontPath, float32(cfg.FontSize))
		if err != nil {
			log.Warn("failed to load font", zap.String("path", fontPath), zap.Error(err))
		}
	} else {
		log.Warn("no font found, text will not be shown")
	}
	defer func() {
		if font != nil {
			font.Close()
		}
	}()

	rate := RefreshRate(renderer)
	frames := NewFrameRecorder(rate, time.Now())
	log.Info(fmt.Sprintf("Refresh rate: %.2f Hz", rate))

	text := NewTextCache(renderer, font, cfg.TextColor.SDL(), float32(cfg.ScreenWidth)*textWrapFactor)
	defer text.Destroy()
	screen := NewSDLScreen(renderer, cfg, clock, frames, text)

	mixer := NewAudioMixer()
	stream := sdl.AUDIO_DEVICE_DEFAULT_PLAYBACK.OpenAudioDeviceStream(&mixSpec, sdl.NewAudioStreamCallback(mixer.Callback))
	if stream == nil {
		return fmt.Errorf("failed to open audio stream")
	}
	defer stream.Destroy()
	stream.ResumeDevice()
	cues := LoadCueSounds(mixer, conds, log)

	events := &EventLog{}
	design := NewDesign(cfg, info, screen, cues, clock, log, events)
	design.FramesPath = filepath.Join(outDir, cfg.FramesName)

	if cfg.MarkerDevice != "" {
		dlp, err := NewDLPIO8G(cfg.MarkerDevice, 9600, log)
		if err != nil {
			log.Warn("failed to initialize DLP device", zap.String("device", cfg.MarkerDevice), zap.Error(err))
		} else {
			defer dlp.Close()
			design.Markers = dlp
		}
	}

	if info.Scanner {
		trigger, err := newTrigger(cfg, info)
		if err != nil {
			return err
		}
		defer trigger.Close()
		design.Trigger = trigger
	}

	if !DisplaySplash(renderer, cfg) {
		return nil
	}

	outcome, err := design.SafeRun(ctx, order)
	mixer.StopAll()
	if err != nil {
		log.Error("block design failed", zap.Error(err))
	}
	log.Info("Outcome: " + outcome.String())
	if info.Scanner {
		log.Info(fmt.Sprintf("Volumes: %d", design.Volumes()))
	}
	log.Info(fmt.Sprintf("Overall, %d frames were dropped.", frames.Dropped()))

	if err := SaveNPY(design.FramesPath, frames.Intervals()); err != nil {
		log.Error("failed to save frame durations", zap.Error(err))
	}
	eventsPath := filepath.Join(outDir, cfg.EventsName)
	if err := events.Save(eventsPath); err != nil {
		log.Error("failed to save event log", zap.Error(err))
	}

	console.Info("session finished",
		zap.String("outcome", outcome.String()),
		zap.String("folder", outDir),
		zap.Int("dropped_frames", frames.Dropped()))
	return nil
}

func newTrigger(cfg *Config, info *SessionInfo) (Trigger, error) {
	if info.Mode == ModeTest {
		tr, err := info.TRDuration()
		if err != nil {
			return nil, err
		}
		volumes, err := info.VolumeCount()
		if err != nil {
			return nil, err
		}
		skip, err := info.SkipCount()
		if err != nil {
			return nil, err
		}
		return NewSyncGenerator(tr, volumes, skip), nil
	}
	if cfg.TriggerSource == TriggerSerial {
		return NewSerialTrigger(cfg.TriggerDevice, cfg.TriggerBaud, info.Sync)
	}
	return &KeyTrigger{Key: strings.ToLower(info.Sync)}, nil
}
