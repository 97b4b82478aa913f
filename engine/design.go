package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Screen is the display the block design draws on. Flip presents the frame
// and returns the session time it was shown at. Keys returns lower-case key
// names pressed since the previous call, with "quit" for a window close.
type Screen interface {
	DrawFixation()
	DrawText(text string, yOffset float32)
	Flip() time.Duration
	Keys() []string
}

type CuePlayer interface {
	Play(cond Condition) bool
}

type starter interface {
	Start(ctx context.Context)
}

type Outcome int

const (
	Completed Outcome = iota
	Aborted
)

func (o Outcome) String() string {
	if o == Completed {
		return "completed"
	}
	return "aborted"
}

const (
	KeyQuit            = "quit"
	messageYOffset     = 0.25
	centerYOffset      = 0
	beginLogTimeFormat = "Begin of the experiment (trigger) at: %.6f"
)

// Design runs the fixation / cue block sequence.
type Design struct {
	Screen  Screen
	Cues    CuePlayer
	Trigger Trigger
	Markers Marker
	Clock   Clock
	Log     *zap.Logger
	Events  *EventLog

	FixationDuration   time.Duration
	BlockDuration      time.Duration
	EndMessageDuration time.Duration
	IntroMessage       string
	ScannerMessage     string
	FinalMessage       string
	AbortKeys          []string
	SyncKey            string
	FramesPath         string

	origin   time.Duration
	volumes  int
	lastFlip time.Duration
	offset   *pendingOffset
}

// pendingOffset is a cue whose offset is logged at the next flip, the first
// one that no longer shows it.
type pendingOffset struct {
	intended time.Duration
	label    string
}

func NewDesign(cfg *Config, info *SessionInfo, screen Screen, cues CuePlayer, clock Clock, log *zap.Logger, events *EventLog) *Design {
	d := &Design{
		Screen:             screen,
		Cues:               cues,
		Markers:            nopMarker{},
		Clock:              clock,
		Log:                log,
		Events:             events,
		FixationDuration:   cfg.FixationDuration,
		BlockDuration:      cfg.BlockDuration,
		EndMessageDuration: cfg.EndMessageDuration,
		IntroMessage:       cfg.IntroMessage,
		ScannerMessage:     cfg.ScannerMessage,
		FinalMessage:       cfg.FinalMessage,
		AbortKeys:          cfg.AbortKeys,
	}
	if info.Scanner {
		d.SyncKey = strings.ToLower(info.Sync)
	}
	return d
}

// Volumes is the number of sync pulses seen since the scanner started.
func (d *Design) Volumes() int {
	return d.volumes
}

// SafeRun is Run with panics turned into errors.
func (d *Design) SafeRun(ctx context.Context, order []Condition) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Aborted
			err = fmt.Errorf("block design panicked: %v", r)
		}
	}()
	return d.Run(ctx, order)
}

func (d *Design) Run(ctx context.Context, order []Condition) (Outcome, error) {
	defer func() { d.flushOffset(d.lastFlip) }()

	d.Log.Info("Trials order:")
	d.Log.Info(fmt.Sprintf("%v", OrderNames(order)))

	if ok, err := d.waitForKey(ctx, d.IntroMessage); !ok {
		return Aborted, err
	}

	if d.Trigger != nil {
		if ok, err := d.waitForSync(ctx); !ok {
			return Aborted, err
		}
	} else {
		d.origin = d.Clock.Now()
	}
	begin := d.Clock.Now()
	d.Log.Info(fmt.Sprintf(beginLogTimeFormat, d.origin.Seconds()))
	d.Events.Log(0, 0, EventTrigger, "begin")

	blockLen := d.FixationDuration + d.BlockDuration
	for i, cond := range order {
		d.Log.Info("*** Run: " + cond.Instruction + " ***")
		start := time.Duration(i) * blockLen
		if ok, err := d.fixation(ctx, start, cond.Name); !ok {
			return Aborted, err
		}
		if ok, err := d.instruction(ctx, start+d.FixationDuration, cond); !ok {
			return Aborted, err
		}
	}

	end := time.Duration(len(order)) * blockLen
	if ok, err := d.fixation(ctx, end, "final"); !ok {
		return Aborted, err
	}

	if ok, err := d.present(ctx, d.EndMessageDuration, end+d.FixationDuration, EventEndMessage, "final_message", func() {
		d.Screen.DrawText(d.FinalMessage, messageYOffset)
	}, nil); !ok {
		return Aborted, err
	}

	d.Log.Info("***** End *****")
	d.Log.Info(fmt.Sprintf("Total time spent: %s", d.Clock.Now()-begin))
	if d.FramesPath != "" {
		d.Log.Info("Every frame duration saved in " + d.FramesPath)
	}
	return Completed, nil
}

func (d *Design) fixation(ctx context.Context, intended time.Duration, label string) (bool, error) {
	return d.present(ctx, d.FixationDuration, intended, EventFixationOnset, label, d.Screen.DrawFixation, nil)
}

func (d *Design) instruction(ctx context.Context, intended time.Duration, cond Condition) (bool, error) {
	if d.Cues.Play(cond) {
		d.Events.Log(intended, d.Clock.Now()-d.origin, EventSoundOnset, cond.Name)
	} else {
		d.Log.Warn("cue sound not played", zap.String("condition", cond.Name), zap.String("file", cond.SoundFile))
	}

	raised := false
	ok, err := d.present(ctx, d.BlockDuration, intended, EventCueOnset, cond.Name, func() {
		d.Screen.DrawText(cond.Instruction, centerYOffset)
	}, func() {
		if cond.MarkerLine != "" {
			d.Markers.Set(cond.MarkerLine)
			raised = true
		}
	})
	if raised {
		d.Markers.Unset(cond.MarkerLine)
	}
	d.offset = &pendingOffset{intended: intended + d.BlockDuration, label: cond.Name}
	return ok, err
}

func (d *Design) flushOffset(at time.Duration) {
	if d.offset == nil {
		return
	}
	d.Events.Log(d.offset.intended, at-d.origin, EventCueOffset, d.offset.label)
	d.offset = nil
}

// present draws a frame until dur has elapsed, logging the onset and calling
// onset at the first flip. It returns false when an abort key was pressed or
// ctx ended.
func (d *Design) present(ctx context.Context, dur, intended time.Duration, etype, label string, draw, onset func()) (bool, error) {
	timer := NewCountdown(d.Clock, dur)
	first := true
	for !timer.Done() {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		draw()
		at := d.Screen.Flip()
		d.lastFlip = at
		if first {
			d.flushOffset(at)
			d.Events.Log(intended, at-d.origin, etype, label)
			if onset != nil {
				onset()
			}
			first = false
		}
		if d.handleKeys(at, d.Screen.Keys()) {
			return false, nil
		}
	}
	return true, nil
}

func (d *Design) waitForKey(ctx context.Context, message string) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		d.Screen.DrawText(message, centerYOffset)
		d.Screen.Flip()
		keys := d.Screen.Keys()
		for _, k := range keys {
			if k == KeyQuit || d.isAbortKey(k) {
				d.Log.Info("aborted before start", zap.String("key", k))
				return false, nil
			}
		}
		if len(keys) > 0 {
			return true, nil
		}
	}
}

func (d *Design) waitForSync(ctx context.Context) (bool, error) {
	d.Trigger.Pulses(nil)
	if s, ok := d.Trigger.(starter); ok {
		s.Start(ctx)
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		d.Screen.DrawText(d.ScannerMessage, messageYOffset)
		at := d.Screen.Flip()
		keys := d.Screen.Keys()
		for _, k := range keys {
			if k == KeyQuit || d.isAbortKey(k) {
				d.Log.Info("aborted while waiting for the scanner", zap.String("key", k))
				return false, nil
			}
		}
		if n := d.Trigger.Pulses(keys); n > 0 {
			d.origin = at
			d.volumes += n
			return true, nil
		}
	}
}

// handleKeys counts sync pulses, logs responses and reports whether an abort
// key was pressed.
func (d *Design) handleKeys(at time.Duration, keys []string) bool {
	if d.Trigger != nil {
		if n := d.Trigger.Pulses(keys); n > 0 {
			d.volumes += n
			d.Events.Log(at-d.origin, at-d.origin, EventTrigger, fmt.Sprintf("volume %d", d.volumes))
		}
	}
	for _, k := range keys {
		if k == KeyQuit || d.isAbortKey(k) {
			d.Events.Log(at-d.origin, at-d.origin, EventAbort, k)
			d.Log.Info("aborted by key", zap.String("key", k))
			return true
		}
		if k != d.SyncKey {
			d.Events.Log(at-d.origin, at-d.origin, EventResponse, k)
		}
	}
	return false
}

func (d *Design) isAbortKey(k string) bool {
	for _, a := range d.AbortKeys {
		if k == a {
			return true
		}
	}
	return false
}
