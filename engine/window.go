package engine

import (
	"math"
	"strings"
	"time"

	"github.com/Zyko0/go-sdl3/img"
	"github.com/Zyko0/go-sdl3/sdl"
)

const (
	FixationRadius = 10
	textWrapFactor = 0.75
)

// SDLScreen draws on an SDL renderer and records every flip.
type SDLScreen struct {
	renderer *sdl.Renderer
	cfg      *Config
	clock    *SystemClock
	frames   *FrameRecorder
	text     *TextCache
	cleared  bool
}

func NewSDLScreen(renderer *sdl.Renderer, cfg *Config, clock *SystemClock, frames *FrameRecorder, text *TextCache) *SDLScreen {
	return &SDLScreen{renderer: renderer, cfg: cfg, clock: clock, frames: frames, text: text}
}

// RefreshRate reads the refresh rate of the display holding the window,
// falling back to 60 Hz.
func RefreshRate(renderer *sdl.Renderer) float64 {
	win, err := renderer.Window()
	if err != nil {
		return 60
	}
	display := sdl.GetDisplayForWindow(win)
	mode, err := display.CurrentDisplayMode()
	if err != nil || mode.RefreshRate <= 0 {
		return 60
	}
	return float64(mode.RefreshRate)
}

func (s *SDLScreen) clear() {
	if s.cleared {
		return
	}
	bg := s.cfg.BGColor
	s.renderer.SetDrawColor(bg.R, bg.G, bg.B, bg.A)
	s.renderer.Clear()
	s.cleared = true
}

func (s *SDLScreen) DrawFixation() {
	s.clear()
	c := s.cfg.FixationColor
	s.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
	cx, cy := float32(s.cfg.ScreenWidth)/2, float32(s.cfg.ScreenHeight)/2
	for dy := -FixationRadius; dy <= FixationRadius; dy++ {
		half := float32(math.Sqrt(float64(FixationRadius*FixationRadius - dy*dy)))
		y := cy + float32(dy)
		s.renderer.RenderLine(cx-half, y, cx+half, y)
	}
}

// DrawText centers text horizontally. yOffset is in normalized units, +1
// being the top edge.
func (s *SDLScreen) DrawText(text string, yOffset float32) {
	s.clear()
	lines := s.text.Lines(text)
	var total float32
	for _, l := range lines {
		total += l.h
	}
	w, h := float32(s.cfg.ScreenWidth), float32(s.cfg.ScreenHeight)
	y := h/2 - yOffset*h/2 - total/2
	for _, l := range lines {
		dst := sdl.FRect{X: (w - l.w) / 2, Y: y, W: l.w, H: l.h}
		s.renderer.RenderTexture(l.tex, nil, &dst)
		y += l.h
	}
}

func (s *SDLScreen) Flip() time.Duration {
	s.clear()
	s.renderer.Present()
	s.frames.Flip(time.Now())
	s.cleared = false
	if !s.cfg.VSync {
		sdl.Delay(1)
	}
	return s.clock.Now()
}

func (s *SDLScreen) Keys() []string {
	var keys []string
	for {
		var ev sdl.Event
		if !sdl.PollEvent(&ev) {
			break
		}
		switch ev.Type {
		case sdl.EVENT_QUIT:
			keys = append(keys, KeyQuit)
		case sdl.EVENT_KEY_DOWN:
			keys = append(keys, strings.ToLower(ev.KeyboardEvent().Key.KeyName()))
		}
	}
	return keys
}

// DisplaySplash shows an image until a key is pressed. It returns false when
// the window was closed.
func DisplaySplash(renderer *sdl.Renderer, cfg *Config) bool {
	if cfg.StartSplash == "" {
		return true
	}
	tex, err := img.LoadTexture(renderer, cfg.StartSplash)
	if err != nil {
		return true
	}
	defer tex.Destroy()

	tw, th, _ := tex.Size()
	dst := sdl.FRect{
		X: (float32(cfg.ScreenWidth) - tw) / 2,
		Y: (float32(cfg.ScreenHeight) - th) / 2,
		W: tw,
		H: th,
	}

	renderer.SetDrawColor(cfg.BGColor.R, cfg.BGColor.G, cfg.BGColor.B, cfg.BGColor.A)
	renderer.Clear()
	renderer.RenderTexture(tex, nil, &dst)
	renderer.Present()

	for {
		var event sdl.Event
		if err := sdl.WaitEvent(&event); err != nil {
			break
		}
		if event.Type == sdl.EVENT_QUIT {
			return false
		}
		if event.Type == sdl.EVENT_KEY_DOWN {
			break
		}
	}
	return true
}
