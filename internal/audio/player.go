// Package audio plays alert sounds and holds the silent keep-alive loop on
// the system audio device through oto.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/logging"
)

// ErrFormatMismatch is returned for a WAV that cannot be converted to the
// layout the device was opened with. oto allows a single context per process.
var ErrFormatMismatch = errors.New("wav format does not match audio device")

// voice is one playing stream; *oto.Player satisfies it.
type voice interface {
	Play()
	IsPlaying() bool
	Pause()
	Close() error
}

type device interface {
	NewVoice(r io.Reader) voice
}

type otoDevice struct{ ctx *oto.Context }

func (d otoDevice) NewVoice(r io.Reader) voice { return d.ctx.NewPlayer(r) }

func openOto(f Format) (device, error) {
	if f.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready
	return otoDevice{ctx: ctx}, nil
}

// Player plays alert sounds from a directory of WAV files.
type Player struct {
	soundsDir string
	open      func(Format) (device, error)
	logger    zerolog.Logger

	mu      sync.Mutex
	dev     device
	format  Format
	openErr error
	oneShot *Loop
}

// NewPlayer creates a player reading sounds from dir. The audio device is
// opened lazily on first use.
func NewPlayer(dir string) *Player {
	return &Player{
		soundsDir: dir,
		open:      openOto,
		logger:    logging.GetLogger("audio"),
	}
}

// device opens the audio device with f on first call. Later calls return
// the open device and the layout it was opened with.
func (p *Player) device(f Format) (device, Format, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev == nil && p.openErr == nil {
		p.dev, p.openErr = p.open(f)
		if p.openErr == nil {
			p.format = f
			p.logger.Info().Int("sample_rate", f.SampleRate).Int("channels", f.Channels).Msg("Audio device opened")
		}
	}
	if p.openErr != nil {
		return nil, Format{}, p.openErr
	}
	return p.dev, p.format, nil
}

// Supported reports whether an audio device can be opened.
func (p *Player) Supported() bool {
	_, _, err := p.device(DefaultFormat)
	return err == nil
}

// PlayOneShot starts playing the sound for id once and returns. Unknown ids
// fall back to the first catalog sound. A sound already playing is stopped.
func (p *Player) PlayOneShot(_ context.Context, id string) error {
	s, ok := Lookup(id)
	if !ok {
		p.logger.Debug().Str("sound", id).Str("fallback", s.ID).Msg("Unknown sound, using fallback")
	}

	data, err := os.ReadFile(filepath.Join(p.soundsDir, s.File))
	if err != nil {
		return fmt.Errorf("read sound %s: %w", s.ID, err)
	}
	f, pcm, err := parseWAV(data)
	if err != nil {
		return fmt.Errorf("parse sound %s: %w", s.ID, err)
	}
	dev, devFormat, err := p.device(f)
	if err != nil {
		return err
	}
	if f != devFormat {
		p.logger.Debug().Str("sound", s.ID).Int("sample_rate", f.SampleRate).Int("channels", f.Channels).Msg("Converting sound to device format")
		if pcm, err = convertPCM(pcm, f, devFormat); err != nil {
			return err
		}
	}

	l := newLoop(dev, pcm, false)
	p.mu.Lock()
	prev := p.oneShot
	p.oneShot = l
	p.mu.Unlock()
	prev.Stop()

	go l.run()
	return nil
}

// StartSilentKeepAlive loops one second of silence until the returned
// handle is closed, keeping the process's audio session alive.
func (p *Player) StartSilentKeepAlive(_ context.Context) (io.Closer, error) {
	dev, f, err := p.device(DefaultFormat)
	if err != nil {
		return nil, err
	}
	silence := make([]byte, f.SampleRate*f.Channels*f.BitDepth/8)
	l := newLoop(dev, silence, true)
	go l.run()
	return l, nil
}

// Done returns a channel closed when the current one-shot sound ends, or
// nil when none was started.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oneShot == nil {
		return nil
	}
	return p.oneShot.Done()
}

// Stop halts any one-shot sound.
func (p *Player) Stop() {
	p.mu.Lock()
	l := p.oneShot
	p.oneShot = nil
	p.mu.Unlock()
	l.Stop()
}

// Loop plays a PCM buffer once or repeatedly until stopped.
type Loop struct {
	dev    device
	pcm    []byte
	repeat bool

	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newLoop(dev device, pcm []byte, repeat bool) *Loop {
	return &Loop{
		dev:    dev,
		pcm:    pcm,
		repeat: repeat,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		v := l.dev.NewVoice(bytes.NewReader(l.pcm))
		v.Play()

		for v.IsPlaying() {
			select {
			case <-l.stopCh:
				v.Pause()
				_ = v.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		_ = v.Close()

		if !l.repeat {
			return
		}
		select {
		case <-l.stopCh:
			return
		default:
		}
	}
}

// Stop ends playback and waits for the loop to exit. Safe on nil and
// safe to call more than once.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	l.once.Do(func() { close(l.stopCh) })
	<-l.done
}

// Close implements io.Closer for keep-alive handles.
func (l *Loop) Close() error {
	l.Stop()
	return nil
}

// Done is closed once playback has ended.
func (l *Loop) Done() <-chan struct{} { return l.done }
