package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// Trigger reports scanner sync pulses. Pulses is called once per frame with
// the keys read during that frame and returns how many pulses arrived since
// the previous call.
type Trigger interface {
	Pulses(keys []string) int
	Close() error
}

// KeyTrigger counts a key typed by the scanner's trigger interface.
type KeyTrigger struct {
	Key string
}

func (t *KeyTrigger) Pulses(keys []string) int {
	n := 0
	for _, k := range keys {
		if k == t.Key {
			n++
		}
	}
	return n
}

func (t *KeyTrigger) Close() error { return nil }

type serialReader interface {
	Read(p []byte) (int, error)
	Close() error
}

// SerialTrigger counts sync bytes arriving on a serial line.
type SerialTrigger struct {
	port    serialReader
	sync    byte
	pending atomic.Int64
	done    chan struct{}
	closed  sync.Once
}

func NewSerialTrigger(device string, baud int, syncKey string) (*SerialTrigger, error) {
	if syncKey == "" {
		return nil, fmt.Errorf("empty sync key")
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open trigger device %s: %w", device, err)
	}
	return newSerialTrigger(port, syncKey[0]), nil
}

func newSerialTrigger(port serialReader, sync byte) *SerialTrigger {
	t := &SerialTrigger{port: port, sync: sync, done: make(chan struct{})}
	go t.read()
	return t
}

func (t *SerialTrigger) read() {
	defer close(t.done)
	buf := make([]byte, 64)
	for {
		n, err := t.port.Read(buf)
		for _, b := range buf[:n] {
			if b == t.sync {
				t.pending.Add(1)
			}
		}
		if err != nil {
			return
		}
	}
}

func (t *SerialTrigger) Pulses([]string) int {
	return int(t.pending.Swap(0))
}

func (t *SerialTrigger) Close() error {
	var err error
	t.closed.Do(func() {
		err = t.port.Close()
		<-t.done
	})
	return err
}

// SyncGenerator emulates the scanner: after skip silent volumes it emits one
// pulse every TR, stopping after volumes pulses (0 means no limit).
type SyncGenerator struct {
	tr      time.Duration
	volumes int
	skip    int

	pending atomic.Int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSyncGenerator(tr time.Duration, volumes, skip int) *SyncGenerator {
	return &SyncGenerator{tr: tr, volumes: volumes, skip: skip}
}

func (g *SyncGenerator) Start(ctx context.Context) {
	ctx, g.cancel = context.WithCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		timer := time.NewTimer(g.tr * time.Duration(g.skip))
		defer timer.Stop()
		for n := 0; g.volumes == 0 || n < g.volumes; n++ {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			g.pending.Add(1)
			timer.Reset(g.tr)
		}
	}()
}

func (g *SyncGenerator) Pulses([]string) int {
	return int(g.pending.Swap(0))
}

func (g *SyncGenerator) Close() error {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
	return nil
}
