// Package audio plays background music for scripts using go-meltysynth and
// Ebitengine/audio.
//
// Playback position is tracked on the script manager's in-game clock, so a script
// waiting for a track to end wakes on the same tick in windowed and headless runs.
// Without an audio context or SoundFont the player is silent but keeps time.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/jxscript/pkg/fileutil"
	"github.com/zurustar/jxscript/pkg/logger"
)

// SampleRate is the audio sample rate used for MIDI synthesis.
const SampleRate = 44100

// ErrMIDIFileNotFound is returned when the MIDI file cannot be found.
var ErrMIDIFileNotFound = errors.New("MIDI file not found")

// ErrMIDIInvalidFormat is returned when the MIDI file has an invalid format.
var ErrMIDIInvalidFormat = errors.New("invalid MIDI file format")

// Clock returns the current in-game time.
type Clock func() time.Duration

// Music is a single-track background music player.
type Music struct {
	fs        fileutil.FileSystem
	clock     Clock
	audioCtx  *audio.Context
	soundFont *meltysynth.SoundFont
	log       *slog.Logger

	player    *audio.Player
	stream    *midiStream
	current   string
	startedAt time.Duration
	length    time.Duration
}

// Option is a functional option for configuring Music.
type Option func(*Music)

// WithAudioContext enables audible playback. Ebitengine allows one context per process.
func WithAudioContext(ctx *audio.Context) Option {
	return func(m *Music) {
		m.audioCtx = ctx
	}
}

// WithSoundFont sets the SoundFont used for synthesis.
func WithSoundFont(sf *meltysynth.SoundFont) Option {
	return func(m *Music) {
		m.soundFont = sf
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Music) {
		m.log = log
	}
}

// NewMusic creates a player that reads MIDI files from fsys and keeps time with clock.
func NewMusic(fsys fileutil.FileSystem, clock Clock, opts ...Option) *Music {
	m := &Music{
		fs:    fsys,
		clock: clock,
		log:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Play starts the MIDI file at path, replacing the current track.
func (m *Music) Play(path string) error {
	m.Stop()

	data, err := m.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fileutil.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMIDIFileNotFound, path)
		}
		return fmt.Errorf("failed to read MIDI file: %w", err)
	}

	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMIDIInvalidFormat, err)
	}

	if m.audioCtx != nil && m.soundFont != nil {
		if err := m.startAudio(midi); err != nil {
			return err
		}
	}

	m.current = fileutil.NormalizePath(path)
	m.startedAt = m.clock()
	m.length = midi.GetLength()
	m.log.Debug("Music started", "file", m.current, "length", m.length, "audible", m.player != nil)
	return nil
}

func (m *Music) startAudio(midi *meltysynth.MidiFile) error {
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(m.soundFont, settings)
	if err != nil {
		return fmt.Errorf("failed to create synthesizer: %w", err)
	}

	sequencer := meltysynth.NewMidiFileSequencer(synth)
	sequencer.Play(midi, false)

	m.stream = &midiStream{sequencer: sequencer}
	player, err := m.audioCtx.NewPlayer(m.stream)
	if err != nil {
		m.stream = nil
		return fmt.Errorf("failed to create audio player: %w", err)
	}
	m.player = player
	m.player.Play()
	return nil
}

// Stop stops the current track.
func (m *Music) Stop() {
	if m.stream != nil {
		m.stream.stop()
	}
	if m.player != nil {
		m.player.Close()
	}
	m.player = nil
	m.stream = nil
	m.current = ""
	m.length = 0
}

// Playing reports whether a track is still within its length.
func (m *Music) Playing() bool {
	return m.current != "" && m.clock()-m.startedAt < m.length
}

// Current returns the playing track, or "" when nothing plays.
func (m *Music) Current() string {
	if !m.Playing() {
		return ""
	}
	return m.current
}

// Length returns the length of the current track.
func (m *Music) Length() time.Duration {
	return m.length
}
