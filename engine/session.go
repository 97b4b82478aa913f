package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	ModeScan = "scan"
	ModeTest = "test"
)

var GenderChoices = []string{"male", "female"}

// SessionInfo holds what the operator enters before a run.
type SessionInfo struct {
	ID          string `yaml:"-"`
	Date        string `yaml:"-"`
	Operator    string `yaml:"operator"`
	SubjectCode string `yaml:"subject_code"`
	Age         string `yaml:"age"`
	Gender      string `yaml:"gender"`
	Scanner     bool   `yaml:"scanner"`
	TR          string `yaml:"tr"`
	Volumes     string `yaml:"volumes"`
	Skip        string `yaml:"skip"`
	Sync        string `yaml:"sync"`
	Mode        string `yaml:"mode"`
}

func DefaultSessionInfo() *SessionInfo {
	return &SessionInfo{
		ID:          uuid.NewString(),
		Date:        time.Now().Format("2006-01-02"),
		Operator:    "MS",
		SubjectCode: "FFE21",
		Gender:      GenderChoices[0],
		Scanner:     true,
		TR:          "2.0",
		Volumes:     "5",
		Skip:        "0",
		Sync:        "s",
		Mode:        ModeScan,
	}
}

func (s *SessionInfo) Validate() error {
	var errs []error
	if strings.TrimSpace(s.SubjectCode) == "" {
		errs = append(errs, errors.New("subject code is required"))
	}
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		errs = append(errs, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s.Date))
	}
	if s.Age != "" {
		if n, err := strconv.Atoi(s.Age); err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("invalid age %q", s.Age))
		}
	}
	validGender := false
	for _, g := range GenderChoices {
		if s.Gender == g {
			validGender = true
			break
		}
	}
	if !validGender {
		errs = append(errs, fmt.Errorf("invalid gender %q (valid: %v)", s.Gender, GenderChoices))
	}
	if _, err := s.TRDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.VolumeCount(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.SkipCount(); err != nil {
		errs = append(errs, err)
	}
	if s.Sync == "" {
		errs = append(errs, errors.New("sync key is required"))
	}
	if s.Mode != ModeScan && s.Mode != ModeTest {
		errs = append(errs, fmt.Errorf("invalid mode %q (valid: %s, %s)", s.Mode, ModeScan, ModeTest))
	}
	return errors.Join(errs...)
}

// TRDuration parses TR, given in seconds.
func (s *SessionInfo) TRDuration() (time.Duration, error) {
	tr, err := strconv.ParseFloat(strings.TrimSpace(s.TR), 64)
	if err != nil || tr <= 0 {
		return 0, fmt.Errorf("invalid TR %q (want seconds > 0)", s.TR)
	}
	return time.Duration(tr * float64(time.Second)), nil
}

func (s *SessionInfo) VolumeCount() (int, error) {
	return parseCount("volumes", s.Volumes)
}

func (s *SessionInfo) SkipCount() (int, error) {
	return parseCount("skip", s.Skip)
}

func parseCount(name, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q (want integer >= 0)", name, v)
	}
	return n, nil
}

// FolderName is the per-session output folder name, before collision suffixes.
func (s *SessionInfo) FolderName() string {
	return s.Date + "_" + s.SubjectCode
}

// CreateOutFolder creates base, or base_1, base_2, ... when base already
// exists, and returns the folder that was created.
func CreateOutFolder(base string) (string, error) {
	path := base
	if _, err := os.Stat(path); err == nil {
		for n := 1; ; n++ {
			path = fmt.Sprintf("%s_%d", base, n)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				break
			}
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create output folder, check permissions: %w", err)
	}
	return path, nil
}

const SessionCacheFile = ".vsimagery_session.yaml"

// LoadSessionCache overlays the fields saved by the previous run. A missing
// cache is not an error.
func (s *SessionInfo) LoadSessionCache(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read session cache: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse session cache: %w", err)
	}
	return nil
}

func (s *SessionInfo) SaveSessionCache(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}
	return nil
}
