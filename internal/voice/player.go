package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// outputRate is the rate the speaker is initialized with; every stream is
// resampled to it.
const outputRate = beep.SampleRate(44100)

// Player plays mp3 and wav files on the default output device.
type Player struct {
	once sync.Once
	err  error
}

// NewPlayer creates a player. The output device is opened on first use.
func NewPlayer() *Player {
	return &Player{}
}

// Play blocks until the file has played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, path string) error {
	p.once.Do(func() {
		p.err = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	if p.err != nil {
		return fmt.Errorf("init speaker: %w", p.err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	stream, format, err := decode(f, path)
	if err != nil {
		f.Close()
		return err
	}
	defer stream.Close()

	var s beep.Streamer = stream
	if format.SampleRate != outputRate {
		s = beep.Resample(4, format.SampleRate, outputRate, stream)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	}
	return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
}
