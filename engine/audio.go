package engine

import (
	"sync"
	"unsafe"

	"github.com/Zyko0/go-sdl3/sdl"
	"go.uber.org/zap"
)

const (
	MaxActiveSounds   = 4
	AudioScratchBytes = 4096
)

type activeSound struct {
	res    *SoundResource
	pos    int
	active bool
}

// AudioMixer sums the playing cue sounds into the SDL audio stream.
type AudioMixer struct {
	mu      sync.Mutex
	slots   [MaxActiveSounds]activeSound
	scratch []byte
}

func NewAudioMixer() *AudioMixer {
	return &AudioMixer{scratch: make([]byte, AudioScratchBytes)}
}

func (m *AudioMixer) Callback(stream *sdl.AudioStream, additionalAmount, totalAmount int32) {
	remaining := int(additionalAmount)
	for remaining > 0 {
		chunk := min(remaining, AudioScratchBytes)
		m.mix(m.scratch[:chunk])
		stream.PutData(m.scratch[:chunk])
		remaining -= chunk
	}
}

// mix fills dst with the sum of active sounds, clipped to int16.
func (m *AudioMixer) mix(dst []byte) {
	clear(dst)
	if len(dst) < 2 {
		return
	}
	out := unsafe.Slice((*int16)(unsafe.Pointer(&dst[0])), len(dst)/2)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		s := &m.slots[i]
		if !s.active {
			continue
		}
		n := min(len(dst), len(s.res.Data)-s.pos) &^ 1
		if n > 0 {
			src := unsafe.Slice((*int16)(unsafe.Pointer(&s.res.Data[s.pos])), n/2)
			for j, v := range src {
				out[j] = int16(max(-32768, min(32767, int32(out[j])+int32(v))))
			}
		}
		s.pos += n
		if n == 0 || s.pos >= len(s.res.Data)-1 {
			s.active = false
		}
	}
}

func (m *AudioMixer) Play(res *SoundResource) bool {
	if res == nil || len(res.Data) < 2 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		if !m.slots[i].active {
			m.slots[i] = activeSound{res: res, active: true}
			return true
		}
	}
	return false
}

func (m *AudioMixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		m.slots[i].active = false
	}
}

// CueSounds plays the sound attached to each condition.
type CueSounds struct {
	mixer  *AudioMixer
	sounds map[string]*SoundResource
}

// LoadCueSounds loads every distinct sound file. Files that fail to load are
// logged and left silent.
func LoadCueSounds(mixer *AudioMixer, conds []Condition, log *zap.Logger) *CueSounds {
	c := &CueSounds{mixer: mixer, sounds: make(map[string]*SoundResource)}
	for _, cond := range conds {
		if cond.SoundFile == "" {
			continue
		}
		if _, ok := c.sounds[cond.SoundFile]; ok {
			continue
		}
		res, err := LoadSound(cond.SoundFile)
		if err != nil {
			log.Warn("cue sound unavailable", zap.String("condition", cond.Name), zap.Error(err))
		}
		c.sounds[cond.SoundFile] = res
	}
	return c
}

func (c *CueSounds) Play(cond Condition) bool {
	return c.mixer.Play(c.sounds[cond.SoundFile])
}
