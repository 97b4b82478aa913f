package engine

import (
	"fmt"
	"unicode/utf8"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"
)

type formField struct {
	label string
	value *string
}

const (
	formX      = 30
	formBoxX   = 220
	formBoxW   = 350
	formRowH   = 45
	formTop    = 30
	formWidth  = 600
	formHeight = 700
)

func rowY(i int) float32 {
	return float32(formTop + i*formRowH)
}

func inside(mx, my float32, r sdl.FRect) bool {
	return mx >= r.X && mx <= r.X+r.W && my >= r.Y && my <= r.Y+r.H
}

// RunSessionDialog lets the operator edit info before a run. It returns false
// when the dialog was cancelled or closed.
func RunSessionDialog(info *SessionInfo) (bool, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return false, fmt.Errorf("SDL init: %w", err)
	}
	defer sdl.Quit()

	if err := ttf.Init(); err != nil {
		return false, fmt.Errorf("TTF init: %w", err)
	}
	defer ttf.Quit()

	window, renderer, err := sdl.CreateWindowAndRenderer("Experiment", formWidth, formHeight, 0)
	if err != nil {
		return false, fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	defer renderer.Destroy()

	fontPath := GetDefaultFontPath()
	if fontPath == "" {
		return false, fmt.Errorf("no default font found for the session dialog")
	}
	font, err := ttf.OpenFont(fontPath, 18)
	if err != nil {
		return false, fmt.Errorf("failed to load dialog font: %w", err)
	}
	defer font.Close()

	fields := []formField{
		{"Date (yyyy-mm-dd):", &info.Date},
		{"Operator:", &info.Operator},
		{"Subject-code:", &info.SubjectCode},
		{"Age:", &info.Age},
		{"TR:", &info.TR},
		{"Volumes:", &info.Volumes},
		{"skip:", &info.Skip},
		{"sync:", &info.Sync},
	}
	genderRow := len(fields)
	scannerRow := genderRow + 1
	testRow := scannerRow + 1
	okBtn := sdl.FRect{X: 160, Y: rowY(testRow + 2), W: 120, H: 40}
	cancelBtn := sdl.FRect{X: 320, Y: rowY(testRow + 2), W: 120, H: 40}

	focus := -1
	errMsg := ""

	window.StartTextInput()
	defer window.StopTextInput()

	for {
		var e sdl.Event
		for sdl.PollEvent(&e) {
			switch e.Type {
			case sdl.EVENT_QUIT:
				return false, nil
			case sdl.EVENT_MOUSE_BUTTON_DOWN:
				me := e.MouseButtonEvent()
				mx, my := me.X, me.Y
				focus = -1
				for i := range fields {
					if inside(mx, my, sdl.FRect{X: formBoxX, Y: rowY(i), W: formBoxW, H: 30}) {
						focus = i
					}
				}
				switch {
				case inside(mx, my, sdl.FRect{X: formBoxX, Y: rowY(genderRow), W: formBoxW, H: 30}):
					info.Gender = nextChoice(GenderChoices, info.Gender)
				case inside(mx, my, sdl.FRect{X: formBoxX, Y: rowY(scannerRow), W: 20, H: 20}):
					info.Scanner = !info.Scanner
				case inside(mx, my, sdl.FRect{X: formBoxX, Y: rowY(testRow), W: 20, H: 20}):
					if info.Mode == ModeTest {
						info.Mode = ModeScan
					} else {
						info.Mode = ModeTest
					}
				case inside(mx, my, okBtn):
					if err := info.Validate(); err != nil {
						errMsg = err.Error()
					} else {
						return true, nil
					}
				case inside(mx, my, cancelBtn):
					return false, nil
				}
			case sdl.EVENT_TEXT_INPUT:
				if focus != -1 {
					*fields[focus].value += e.TextInputEvent().Text
				}
			case sdl.EVENT_KEY_DOWN:
				ke := e.KeyboardEvent()
				switch {
				case ke.Key == sdl.K_ESCAPE:
					return false, nil
				case ke.Key == sdl.K_TAB:
					focus = (focus + 1) % len(fields)
				case ke.Key == sdl.K_BACKSPACE && focus != -1:
					v := fields[focus].value
					*v = trimLastRune(*v)
				}
			}
		}

		renderer.SetDrawColor(240, 240, 240, 255)
		renderer.Clear()
		black := sdl.Color{R: 0, G: 0, B: 0, A: 255}

		for i, f := range fields {
			drawLabel(renderer, font, f.label, formX, rowY(i)+4, black)
			box := sdl.FRect{X: formBoxX, Y: rowY(i), W: formBoxW, H: 30}
			renderer.SetDrawColor(255, 255, 255, 255)
			renderer.RenderFillRect(&box)
			if focus == i {
				renderer.SetDrawColor(0, 120, 255, 255)
			} else {
				renderer.SetDrawColor(180, 180, 180, 255)
			}
			renderer.RenderRect(&box)
			drawLabel(renderer, font, *f.value, formBoxX+5, rowY(i)+4, black)
		}

		drawLabel(renderer, font, "Gender:", formX, rowY(genderRow)+4, black)
		genderBox := sdl.FRect{X: formBoxX, Y: rowY(genderRow), W: formBoxW, H: 30}
		renderer.SetDrawColor(220, 220, 220, 255)
		renderer.RenderFillRect(&genderBox)
		renderer.SetDrawColor(0, 0, 0, 255)
		renderer.RenderRect(&genderBox)
		drawLabel(renderer, font, info.Gender+"  (click to change)", formBoxX+5, rowY(genderRow)+4, black)

		drawCheckbox(renderer, font, "Scanner:", info.Scanner, rowY(scannerRow), black)
		drawCheckbox(renderer, font, "Test mode (emulate scanner):", info.Mode == ModeTest, rowY(testRow), black)

		renderer.SetDrawColor(0, 150, 0, 255)
		renderer.RenderFillRect(&okBtn)
		renderer.SetDrawColor(150, 150, 150, 255)
		renderer.RenderFillRect(&cancelBtn)
		white := sdl.Color{R: 255, G: 255, B: 255, A: 255}
		drawLabel(renderer, font, "OK", okBtn.X+45, okBtn.Y+10, white)
		drawLabel(renderer, font, "Cancel", cancelBtn.X+30, cancelBtn.Y+10, white)

		if errMsg != "" {
			red := sdl.Color{R: 200, G: 0, B: 0, A: 255}
			drawLabel(renderer, font, errMsg, formX, okBtn.Y+55, red)
		}

		renderer.Present()
		sdl.Delay(10)
	}
}

func trimLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func nextChoice(choices []string, current string) string {
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func drawCheckbox(renderer *sdl.Renderer, font *ttf.Font, label string, checked bool, y float32, color sdl.Color) {
	drawLabel(renderer, font, label, formX, y, color)
	check := sdl.FRect{X: formBoxX, Y: y, W: 20, H: 20}
	renderer.SetDrawColor(255, 255, 255, 255)
	renderer.RenderFillRect(&check)
	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.RenderRect(&check)
	if checked {
		mark := sdl.FRect{X: formBoxX + 4, Y: y + 4, W: 12, H: 12}
		renderer.SetDrawColor(0, 150, 0, 255)
		renderer.RenderFillRect(&mark)
	}
}

func drawLabel(renderer *sdl.Renderer, font *ttf.Font, text string, x, y float32, color sdl.Color) {
	if text == "" {
		return
	}
	surf, err := font.RenderTextBlended(text, color)
	if err != nil || surf == nil {
		return
	}
	defer surf.Destroy()
	tex, err := renderer.CreateTextureFromSurface(surf)
	if err != nil {
		return
	}
	defer tex.Destroy()
	r := sdl.FRect{X: x, Y: y, W: float32(surf.W), H: float32(surf.H)}
	renderer.RenderTexture(tex, nil, &r)
}
