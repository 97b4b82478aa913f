package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
	"gopkg.in/yaml.v3"
)

const (
	TriggerKey    = "key"
	TriggerSerial = "serial"
)

// Color is an RGBA color written as "r,g,b[,a]" in the config file.
type Color struct {
	R, G, B, A uint8
}

func ParseColor(s string) (Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("invalid color %q (want r,g,b[,a])", s)
	}
	c := [4]uint8{0, 0, 0, 255}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		c[i] = uint8(v)
	}
	return Color{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", c.R, c.G, c.B, c.A)
}

func (c Color) SDL() sdl.Color {
	return sdl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type Config struct {
	ScreenWidth  int    `yaml:"screen_width"`
	ScreenHeight int    `yaml:"screen_height"`
	Fullscreen   bool   `yaml:"fullscreen"`
	VSync        bool   `yaml:"vsync"`
	FontFile     string `yaml:"font_file"`
	FontSize     int    `yaml:"font_size"`
	StartSplash  string `yaml:"start_splash"`

	BGColor       Color `yaml:"bg_color"`
	TextColor     Color `yaml:"text_color"`
	FixationColor Color `yaml:"fixation_color"`

	SoundsDir      string `yaml:"sounds_dir"`
	ConditionsFile string `yaml:"conditions_file"`
	BlocksPerCond  int    `yaml:"blocks_per_condition"`
	Seed           uint64 `yaml:"seed"`

	FixationDuration   time.Duration `yaml:"fixation_duration"`
	BlockDuration      time.Duration `yaml:"block_duration"`
	EndMessageDuration time.Duration `yaml:"end_message_duration"`

	IntroMessage   string `yaml:"intro_message"`
	ScannerMessage string `yaml:"scanner_message"`
	FinalMessage   string `yaml:"final_message"`

	AbortKeys []string `yaml:"abort_keys"`

	TriggerSource string `yaml:"trigger_source"`
	TriggerDevice string `yaml:"trigger_device"`
	TriggerBaud   int    `yaml:"trigger_baud"`
	MarkerDevice  string `yaml:"marker_device"`

	OutputDir  string `yaml:"output_dir"`
	LogName    string `yaml:"log_name"`
	FramesName string `yaml:"frames_name"`
	EventsName string `yaml:"events_name"`
}

func DefaultConfig() *Config {
	return &Config{
		ScreenWidth:        500,
		ScreenHeight:       500,
		VSync:              true,
		FontSize:           24,
		BGColor:            Color{R: 0, G: 0, B: 0, A: 255},
		TextColor:          Color{R: 255, G: 255, B: 255, A: 255},
		FixationColor:      Color{R: 255, G: 255, B: 255, A: 255},
		SoundsDir:          "in",
		BlocksPerCond:      4,
		FixationDuration:   5 * time.Second,
		BlockDuration:      5 * time.Second,
		EndMessageDuration: 3 * time.Second,
		IntroMessage:       "Please follow displayed instructions. Press a key to continue..",
		ScannerMessage:     "Waiting for the scanner...",
		FinalMessage:       "This is the end of the experiment.",
		AbortKeys:          []string{"escape", "q"},
		TriggerSource:      TriggerKey,
		TriggerBaud:        9600,
		OutputDir:          "out",
		LogName:            "myLogFile.log",
		FramesName:         "frames_durations.npy",
		EventsName:         "events.csv",
	}
}

const DefaultConfigFile = "imagery.yaml"

// Load reads a YAML config over the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("IMAGERY_OUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("IMAGERY_SOUNDS_DIR"); v != "" {
		c.SoundsDir = v
	}
	if v := os.Getenv("IMAGERY_TRIGGER_DEVICE"); v != "" {
		c.TriggerDevice = v
		c.TriggerSource = TriggerSerial
	}
	if v := os.Getenv("IMAGERY_MARKER_DEVICE"); v != "" {
		c.MarkerDevice = v
	}
	if v := os.Getenv("IMAGERY_FULLSCREEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Fullscreen = b
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid screen size %dx%d", c.ScreenWidth, c.ScreenHeight))
	}
	if c.BlocksPerCond <= 0 {
		errs = append(errs, fmt.Errorf("blocks_per_condition must be > 0, got %d", c.BlocksPerCond))
	}
	if c.FixationDuration <= 0 || c.BlockDuration <= 0 {
		errs = append(errs, errors.New("fixation_duration and block_duration must be > 0"))
	}
	if c.EndMessageDuration < 0 {
		errs = append(errs, errors.New("end_message_duration must be >= 0"))
	}
	switch c.TriggerSource {
	case TriggerKey:
	case TriggerSerial:
		if c.TriggerDevice == "" {
			errs = append(errs, errors.New("trigger_source serial needs trigger_device"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid trigger_source %q (valid: %s, %s)", c.TriggerSource, TriggerKey, TriggerSerial))
	}
	if len(c.AbortKeys) == 0 {
		errs = append(errs, errors.New("at least one abort key is required"))
	}
	return errors.Join(errs...)
}

// Conditions returns the configured cue set with sound paths resolved
// against SoundsDir.
func (c *Config) Conditions() ([]Condition, error) {
	conds := DefaultConditions()
	if c.ConditionsFile != "" {
		loaded, err := LoadConditions(c.ConditionsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load conditions: %w", err)
		}
		conds = loaded
	}
	for i := range conds {
		if conds[i].SoundFile != "" && !filepath.IsAbs(conds[i].SoundFile) {
			conds[i].SoundFile = filepath.Join(c.SoundsDir, conds[i].SoundFile)
		}
	}
	return conds, nil
}
