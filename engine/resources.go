package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"
)

func GetDefaultFontPath() string {
	entries, err := os.ReadDir("fonts")
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				if ext == ".ttf" || ext == ".ttc" {
					return filepath.Join("fonts", entry.Name())
				}
			}
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "windows":
		paths = []string{"C:\\Windows\\Fonts\\arial.ttf"}
	case "darwin":
		paths = []string{"/System/Library/Fonts/Helvetica.ttc"}
	default:
		paths = []string{
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

type SoundResource struct {
	Data []byte
	Spec sdl.AudioSpec
}

var mixSpec = sdl.AudioSpec{Format: sdl.AUDIO_S16, Channels: 2, Freq: 44100}

// LoadSound reads a WAV file and converts it to the mixer format.
func LoadSound(path string) (*SoundResource, error) {
	spec := &sdl.AudioSpec{}
	data, err := sdl.LoadWAV(path, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load sound %s: %w", path, err)
	}
	if spec.Format == mixSpec.Format && spec.Channels == mixSpec.Channels && spec.Freq == mixSpec.Freq {
		return &SoundResource{Data: data, Spec: *spec}, nil
	}
	converted, err := sdl.ConvertAudioSamples(spec, data, &mixSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to convert sound %s: %w", path, err)
	}
	return &SoundResource{Data: converted, Spec: mixSpec}, nil
}

type textLine struct {
	tex  *sdl.Texture
	w, h float32
}

// TextCache renders each distinct message once, wrapped to a maximum width.
type TextCache struct {
	renderer *sdl.Renderer
	font     *ttf.Font
	color    sdl.Color
	maxWidth float32
	entries  map[string][]textLine
}

func NewTextCache(renderer *sdl.Renderer, font *ttf.Font, color sdl.Color, maxWidth float32) *TextCache {
	return &TextCache{
		renderer: renderer,
		font:     font,
		color:    color,
		maxWidth: maxWidth,
		entries:  make(map[string][]textLine),
	}
}

func (c *TextCache) Lines(text string) []textLine {
	if lines, ok := c.entries[text]; ok {
		return lines
	}
	var lines []textLine
	if c.font != nil {
		for _, s := range WrapText(text, c.maxWidth, c.measure) {
			if l, ok := c.render(s); ok {
				lines = append(lines, l)
			}
		}
	}
	c.entries[text] = lines
	return lines
}

func (c *TextCache) measure(s string) float32 {
	surf, err := c.font.RenderTextBlended(s, c.color)
	if err != nil || surf == nil {
		return 0
	}
	defer surf.Destroy()
	return float32(surf.W)
}

func (c *TextCache) render(s string) (textLine, bool) {
	surf, err := c.font.RenderTextBlended(s, c.color)
	if err != nil || surf == nil {
		return textLine{}, false
	}
	defer surf.Destroy()
	tex, err := c.renderer.CreateTextureFromSurface(surf)
	if err != nil {
		return textLine{}, false
	}
	return textLine{tex: tex, w: float32(surf.W), h: float32(surf.H)}, true
}

func (c *TextCache) Destroy() {
	for _, lines := range c.entries {
		for _, l := range lines {
			l.tex.Destroy()
		}
	}
	c.entries = make(map[string][]textLine)
}

// WrapText breaks text on spaces so every line measures at most maxWidth.
// A single word wider than maxWidth gets a line of its own.
func WrapText(text string, maxWidth float32, measure func(string) float32) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}
