// Package voice captures microphone audio and turns reply text into
// played-back speech.
package voice

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/Lin-Jiong-HDU/jarvis/internal/voice/wavio"
)

// SampleRate is the capture rate expected by the transcribers.
const SampleRate = wavio.SampleRate

// ErrNoAudio is returned when nothing above the silence threshold was heard.
var ErrNoAudio = errors.New("no audio recorded")

// RecorderOptions tunes voice activity detection.
type RecorderOptions struct {
	// SilenceThreshold is the frame RMS below which a frame counts as silence.
	SilenceThreshold float64
	// SilenceDuration ends the recording once speech was heard.
	SilenceDuration time.Duration
	MaxDuration     time.Duration
}

// DefaultRecorderOptions returns the tuning used by the listen loop.
func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		SilenceThreshold: 0.015,
		SilenceDuration:  800 * time.Millisecond,
		MaxDuration:      15 * time.Second,
	}
}

// Recorder records from the default input device.
type Recorder struct {
	opts RecorderOptions
	once sync.Once
	err  error
	live bool
}

// NewRecorder creates a recorder. PortAudio is initialized lazily on the
// first recording.
func NewRecorder(opts RecorderOptions) *Recorder {
	def := DefaultRecorderOptions()
	if opts.SilenceThreshold <= 0 {
		opts.SilenceThreshold = def.SilenceThreshold
	}
	if opts.SilenceDuration <= 0 {
		opts.SilenceDuration = def.SilenceDuration
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = def.MaxDuration
	}
	return &Recorder{opts: opts}
}

// Close releases PortAudio.
func (r *Recorder) Close() error {
	if !r.live {
		return nil
	}
	r.live = false
	return portaudio.Terminate()
}

// Record captures one utterance: it waits for speech, then stops after
// SilenceDuration of quiet or MaxDuration. Samples are mono float32 at
// SampleRate.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	r.once.Do(func() {
		r.err = portaudio.Initialize()
		r.live = r.err == nil
	})
	if r.err != nil {
		return nil, r.err
	}

	const frameSize = SampleRate / 50 // 20ms

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	det := newSilenceDetector(r.opts, frameSize)
	out := make([]float32, 0, SampleRate*3)

	for !det.done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if det.feed(buf) {
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoAudio
	}
	return out, nil
}

// silenceDetector decides which frames belong to an utterance.
type silenceDetector struct {
	threshold     float64
	silenceFrames int
	maxFrames     int

	frames   int
	speaking bool
	quiet    int
	stopped  bool
}

func newSilenceDetector(opts RecorderOptions, frameSize int) *silenceDetector {
	frameDur := time.Duration(frameSize) * time.Second / SampleRate
	return &silenceDetector{
		threshold:     opts.SilenceThreshold,
		silenceFrames: int(opts.SilenceDuration / frameDur),
		maxFrames:     int(opts.MaxDuration / frameDur),
	}
}

// feed reports whether the frame should be kept.
func (d *silenceDetector) feed(frame []float32) bool {
	d.frames++
	if d.frames >= d.maxFrames {
		d.stopped = true
	}

	if frameRMS(frame) > d.threshold {
		d.speaking = true
		d.quiet = 0
		return true
	}

	if !d.speaking {
		return false
	}

	d.quiet++
	if d.quiet >= d.silenceFrames {
		d.stopped = true
	}
	return true
}

func (d *silenceDetector) done() bool {
	return d.stopped
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
