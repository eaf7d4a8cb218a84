// Package alert renders the audible alert tone and delivers one-shot failure
// notifications to the user.
package alert

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/jmylchreest/tvee/internal/config"
)

const (
	toneAmplitude = 0.5
	toneFade      = 5 * time.Millisecond
)

// Tone is a short mono sine tone. The WAV encoding is rendered once.
type Tone struct {
	frequency  float64
	duration   time.Duration
	sampleRate beep.SampleRate

	once sync.Once
	wav  []byte
	err  error
}

// NewTone creates a tone from alert configuration.
func NewTone(cfg config.AlertConfig) *Tone {
	return &Tone{
		frequency:  float64(cfg.ToneFrequency),
		duration:   cfg.ToneDuration,
		sampleRate: beep.SampleRate(cfg.SampleRate),
	}
}

// Format is 16-bit mono at the configured sample rate.
func (t *Tone) Format() beep.Format {
	return beep.Format{
		SampleRate:  t.sampleRate,
		NumChannels: 1,
		Precision:   2,
	}
}

// Samples returns the tone length in samples.
func (t *Tone) Samples() int {
	return t.sampleRate.N(t.duration)
}

// Streamer returns a fresh streamer over the tone.
func (t *Tone) Streamer() beep.Streamer {
	total := t.Samples()
	fade := max(t.sampleRate.N(toneFade), 1)
	step := 2 * math.Pi * t.frequency / float64(t.sampleRate)
	pos := 0

	sine := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			envelope := 1.0
			if pos < fade {
				envelope = float64(pos) / float64(fade)
			} else if rem := total - pos; rem < fade {
				envelope = float64(rem) / float64(fade)
			}
			v := toneAmplitude * envelope * math.Sin(step*float64(pos))
			samples[i] = [2]float64{v, v}
			pos++
		}
		return len(samples), true
	})
	return beep.Take(total, sine)
}

// WAV returns the encoded tone.
func (t *Tone) WAV() ([]byte, error) {
	t.once.Do(func() {
		if t.Samples() <= 0 || t.frequency <= 0 {
			t.err = errors.New("tone frequency, duration and sample rate must be positive")
			return
		}
		buf := &writeSeekBuffer{}
		if err := wav.Encode(buf, t.Streamer(), t.Format()); err != nil {
			t.err = fmt.Errorf("encoding tone: %w", err)
			return
		}
		t.wav = buf.data
	})
	return t.wav, t.err
}

// writeSeekBuffer is an in-memory io.WriteSeeker; wav.Encode seeks back to
// patch the header sizes.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
