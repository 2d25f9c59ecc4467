// Package wavio reads and writes the 16-bit PCM WAV files exchanged with
// the transcribers.
package wavio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is the mono capture rate the transcribers expect.
const SampleRate = 16000

const (
	bitDepth   = 16
	pcmFormat  = 1
	maxInt16   = math.MaxInt16
	int16Scale = 1 << 15
)

// Write stores mono float32 samples in [-1, 1] as 16-bit PCM.
func Write(path string, pcm []float32, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	data := make([]int, len(pcm))
	for i, s := range pcm {
		v := math.Round(float64(s) * maxInt16)
		data[i] = int(max(-int16Scale, min(maxInt16, v)))
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// Read loads a PCM WAV file as mono float32 samples. Multi-channel
// input is downmixed by averaging.
func Read(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}

	if dec.BitDepth == 0 {
		return nil, 0, errors.New("wav file has no bit depth")
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	scale := float64(int(1) << (dec.BitDepth - 1))

	out := make([]float32, len(buf.Data)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = float32(sum / float64(channels) / scale)
	}

	return out, int(dec.SampleRate), nil
}
