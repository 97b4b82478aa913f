package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }

// fakeScreen advances the clock by one frame per flip and hands out
// scripted keys by frame number (1-based, counted after the flip).
type fakeScreen struct {
	clock   *fakeClock
	frame   time.Duration
	keys    map[int][]string
	frames  int
	last    string
	shown   []string
	panicOn string
}

func (s *fakeScreen) DrawFixation() {
	if s.panicOn == "fixation" {
		panic("renderer lost")
	}
	s.last = "fixation"
}

func (s *fakeScreen) DrawText(text string, yOffset float32) { s.last = text }

func (s *fakeScreen) Flip() time.Duration {
	s.clock.now += s.frame
	s.frames++
	s.shown = append(s.shown, s.last)
	return s.clock.now
}

func (s *fakeScreen) Keys() []string { return s.keys[s.frames] }

type fakeCues struct {
	played []string
}

func (c *fakeCues) Play(cond Condition) bool {
	c.played = append(c.played, cond.Name)
	return true
}

type fakeMarker struct {
	calls []string
}

func (m *fakeMarker) Set(lines string)   { m.calls = append(m.calls, "set:"+lines) }
func (m *fakeMarker) Unset(lines string) { m.calls = append(m.calls, "unset:"+lines) }

type designFixture struct {
	design  *Design
	screen  *fakeScreen
	cues    *fakeCues
	markers *fakeMarker
	events  *EventLog
	logs    *observer.ObservedLogs
}

func newDesignFixture(scanner bool, keys map[int][]string) *designFixture {
	cfg := DefaultConfig()
	cfg.FixationDuration = 100 * time.Millisecond
	cfg.BlockDuration = 100 * time.Millisecond
	cfg.EndMessageDuration = 30 * time.Millisecond

	info := DefaultSessionInfo()
	info.Scanner = scanner

	clock := &fakeClock{}
	screen := &fakeScreen{clock: clock, frame: 10 * time.Millisecond, keys: keys}
	cues := &fakeCues{}
	markers := &fakeMarker{}
	events := &EventLog{}
	core, logs := observer.New(zap.DebugLevel)

	d := NewDesign(cfg, info, screen, cues, clock, zap.New(core), events)
	d.Markers = markers
	if scanner {
		d.Trigger = &KeyTrigger{Key: "s"}
	}
	return &designFixture{design: d, screen: screen, cues: cues, markers: markers, events: events, logs: logs}
}

func twoBlocks() []Condition {
	c := DefaultConditions()
	return []Condition{c[0], c[2]}
}

func eventTypes(l *EventLog) []string {
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Type
	}
	return out
}

func TestDesign_RunCompletes(t *testing.T) {
	f := newDesignFixture(false, map[int][]string{1: {"space"}})

	outcome, err := f.design.Run(context.Background(), twoBlocks())
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)

	// intro + 2 x (fixation + cue) + final fixation + final message
	assert.Equal(t, 1+2*(10+10)+10+3, f.screen.frames)
	assert.Equal(t, []string{"tennis", "faces"}, f.cues.played)
	assert.Equal(t, []string{"set:1", "unset:1", "set:3", "unset:3"}, f.markers.calls)

	assert.Equal(t, []string{
		EventTrigger,
		EventFixationOnset, EventSoundOnset, EventCueOnset, EventCueOffset,
		EventFixationOnset, EventSoundOnset, EventCueOnset, EventCueOffset,
		EventFixationOnset,
		EventEndMessage,
	}, eventTypes(f.events))

	cueOnset := f.events.Entries[3]
	assert.Equal(t, int64(100), cueOnset.IntendedMS)
	assert.Equal(t, int64(110), cueOnset.ActualMS)
	assert.Equal(t, "tennis", cueOnset.Label)

	firstOffset := f.events.Entries[4]
	assert.Equal(t, int64(200), firstOffset.IntendedMS)
	assert.Equal(t, int64(210), firstOffset.ActualMS, "offset is the first flip without the cue")

	secondOffset := f.events.Entries[8]
	assert.Equal(t, int64(400), secondOffset.IntendedMS)
	assert.Equal(t, int64(410), secondOffset.ActualMS)

	secondFix := f.events.Entries[5]
	assert.Equal(t, int64(200), secondFix.IntendedMS)
	assert.Equal(t, int64(210), secondFix.ActualMS)

	end := f.events.Entries[10]
	assert.Equal(t, int64(500), end.IntendedMS)

	assert.Equal(t, 1, f.logs.FilterMessage("Trials order:").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("*** Run: imagine to play a game of tennis ***").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("***** End *****").Len())
}

func TestDesign_ShowsCueText(t *testing.T) {
	f := newDesignFixture(false, map[int][]string{1: {"space"}})

	_, err := f.design.Run(context.Background(), twoBlocks()[:1])
	require.NoError(t, err)

	shown := f.screen.shown
	assert.Equal(t, f.design.IntroMessage, shown[0])
	for _, s := range shown[1:11] {
		assert.Equal(t, "fixation", s)
	}
	for _, s := range shown[11:21] {
		assert.Equal(t, "imagine to play a game of tennis", s)
	}
	assert.Equal(t, f.design.FinalMessage, shown[len(shown)-1])
}

func TestDesign_AbortKeyStopsRun(t *testing.T) {
	for _, key := range []string{"escape", "q", KeyQuit} {
		t.Run(key, func(t *testing.T) {
			// frame 1 intro, 2-11 fixation, 12-21 first cue, 22-31 fixation, 32+ second cue
			f := newDesignFixture(false, map[int][]string{1: {"space"}, 35: {key}})

			outcome, err := f.design.Run(context.Background(), twoBlocks())
			require.NoError(t, err)
			assert.Equal(t, Aborted, outcome)
			assert.Equal(t, 35, f.screen.frames)

			types := eventTypes(f.events)
			assert.NotContains(t, types, EventEndMessage)
			assert.Contains(t, types, EventAbort)
			assert.Equal(t, []string{"set:1", "unset:1", "set:3", "unset:3"}, f.markers.calls)
			assert.Equal(t, 0, f.logs.FilterMessage("***** End *****").Len())
		})
	}
}

func TestDesign_AbortDuringPhase(t *testing.T) {
	// frame 1 intro, 2-11 fixation, 12-21 cue, 22-31 fixation, 32-41 cue,
	// 42-51 final fixation, 52-54 final message
	tests := []struct {
		name  string
		frame int
		want  []string
	}{
		{"second cue", 35, []string{
			EventTrigger,
			EventFixationOnset, EventSoundOnset, EventCueOnset,
			EventCueOffset, EventFixationOnset, EventSoundOnset, EventCueOnset,
			EventAbort, EventCueOffset,
		}},
		{"final fixation", 45, []string{
			EventTrigger,
			EventFixationOnset, EventSoundOnset, EventCueOnset,
			EventCueOffset, EventFixationOnset, EventSoundOnset, EventCueOnset,
			EventCueOffset, EventFixationOnset,
			EventAbort,
		}},
		{"final message", 53, []string{
			EventTrigger,
			EventFixationOnset, EventSoundOnset, EventCueOnset,
			EventCueOffset, EventFixationOnset, EventSoundOnset, EventCueOnset,
			EventCueOffset, EventFixationOnset,
			EventEndMessage, EventAbort,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDesignFixture(false, map[int][]string{1: {"space"}, tt.frame: {"escape"}})

			outcome, err := f.design.Run(context.Background(), twoBlocks())
			require.NoError(t, err)
			assert.Equal(t, Aborted, outcome)
			assert.Equal(t, tt.frame, f.screen.frames)
			assert.Equal(t, tt.want, eventTypes(f.events))
			assert.Equal(t, 0, f.logs.FilterMessage("***** End *****").Len())
		})
	}
}

func TestDesign_AbortedCueOffsetIsLastFlip(t *testing.T) {
	f := newDesignFixture(false, map[int][]string{1: {"space"}, 35: {"q"}})

	_, err := f.design.Run(context.Background(), twoBlocks())
	require.NoError(t, err)

	last := f.events.Entries[len(f.events.Entries)-1]
	assert.Equal(t, EventCueOffset, last.Type)
	assert.Equal(t, "faces", last.Label)
	assert.Equal(t, int64(400), last.IntendedMS)
	assert.Equal(t, int64(340), last.ActualMS)
}

func TestDesign_AbortAtIntro(t *testing.T) {
	f := newDesignFixture(false, map[int][]string{3: {"escape"}})

	outcome, err := f.design.Run(context.Background(), twoBlocks())
	require.NoError(t, err)
	assert.Equal(t, Aborted, outcome)
	assert.Equal(t, 3, f.screen.frames)
	assert.Empty(t, f.cues.played)
}

func TestDesign_WaitsForScannerSync(t *testing.T) {
	f := newDesignFixture(true, map[int][]string{
		1:  {"space"},
		4:  {"s"},
		10: {"s"},
		20: {"s", "1"},
	})

	outcome, err := f.design.Run(context.Background(), twoBlocks()[:1])
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, 3, f.design.Volumes())

	// the trigger arrived at frame 4, 40 ms into the session
	assert.Equal(t, 1, f.logs.FilterMessage("Begin of the experiment (trigger) at: 0.040000").Len())

	var responses, triggers int
	for _, e := range f.events.Entries {
		switch e.Type {
		case EventResponse:
			responses++
			assert.Equal(t, "1", e.Label)
		case EventTrigger:
			triggers++
		}
	}
	assert.Equal(t, 1, responses)
	assert.Equal(t, 3, triggers) // begin + 2 pulses during the run
}

func TestDesign_ContextCancel(t *testing.T) {
	f := newDesignFixture(false, map[int][]string{1: {"space"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := f.design.Run(ctx, twoBlocks())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, outcome)
}

func TestDesign_SafeRunRecoversPanic(t *testing.T) {
	f := newDesignFixture(false, map[int][]string{1: {"space"}})
	f.screen.panicOn = "fixation"

	outcome, err := f.design.SafeRun(context.Background(), twoBlocks())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer lost")
	assert.Equal(t, Aborted, outcome)
}
