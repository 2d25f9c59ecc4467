package wavio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio", "recording.wav")
	pcm := []float32{0, 0.5, -0.5, 1, -1, 0.25}

	require.NoError(t, Write(path, pcm, SampleRate))

	got, rate, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, SampleRate, rate)
	require.Len(t, got, len(pcm))
	for i := range pcm {
		assert.InDelta(t, pcm[i], got[i], 1.0/16384, "sample %d", i)
	}
}

func TestWrite_Clips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loud.wav")
	require.NoError(t, Write(path, []float32{3, -3}, SampleRate))

	got, _, err := Read(path)
	require.NoError(t, err)
	assert.InDelta(t, 1, got[0], 0.001)
	assert.InDelta(t, -1, got[1], 0.001)
}

func TestRead_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))

	_, _, err := Read(path)
	assert.Error(t, err)

	_, _, err = Read(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
