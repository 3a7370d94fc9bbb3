package audio

import (
	"encoding/binary"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// midiStream implements io.Reader for Ebitengine/audio.
// It renders 16-bit stereo samples from the MIDI sequencer.
type midiStream struct {
	sequencer *meltysynth.MidiFileSequencer
	stopped   bool
	mu        sync.Mutex
}

// Read renders audio from the sequencer and converts it to interleaved int16.
func (s *midiStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.sequencer == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	// 16-bit stereo = 4 bytes per sample
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}

	left := make([]float32, samples)
	right := make([]float32, samples)
	s.sequencer.Render(left, right)

	for i := range samples {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return samples * 4, nil
}

// stop makes Read return silence.
func (s *midiStream) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
