package engine

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	EventTrigger       = "TRIGGER"
	EventFixationOnset = "FIXATION_ONSET"
	EventCueOnset      = "CUE_ONSET"
	EventSoundOnset    = "SOUND_ONSET"
	EventCueOffset     = "CUE_OFFSET"
	EventEndMessage    = "END_MESSAGE_ONSET"
	EventResponse      = "RESPONSE"
	EventAbort         = "ABORT"
)

type EventLogEntry struct {
	IntendedMS int64
	ActualMS   int64
	Type       string
	Label      string
}

type EventLog struct {
	mu      sync.Mutex
	Entries []EventLogEntry
}

func (l *EventLog) Log(intended, actual time.Duration, etype, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, EventLogEntry{
		IntendedMS: intended.Milliseconds(),
		ActualMS:   actual.Milliseconds(),
		Type:       etype,
		Label:      label,
	})
}

func (l *EventLog) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"intended_ms", "actual_ms", "type", "label"})
	for _, e := range l.Entries {
		w.Write([]string{
			strconv.FormatInt(e.IntendedMS, 10),
			strconv.FormatInt(e.ActualMS, 10),
			e.Type,
			e.Label,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
