package wavfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtaudio "github.com/tphakala/go-rtaudio"
	"github.com/tphakala/go-rtaudio/internal/testutil"
)

const (
	testRate   = 48000
	testBuffer = 64
)

// writeTestWAV writes interleaved samples to a new WAV file.
func writeTestWAV(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, bitDepth, channels, wavFormatPCM)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

// readTestWAV decodes a whole WAV file.
func readTestWAV(t *testing.T, path string) (*audio.IntBuffer, *wav.Decoder) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return buf, dec
}

// stereoRamp returns frames interleaved stereo frames: left counts up,
// right counts down.
func stereoRamp(frames int) []int {
	data := make([]int, frames*2)
	for i := range frames {
		data[2*i] = i * 10
		data[2*i+1] = -i * 10
	}
	return data
}

// runToEnd runs periods until the capture stream ends.
func runToEnd(t *testing.T, d *Driver) int {
	t.Helper()
	periods := 0
	for {
		err := d.Read()
		if errors.Is(err, ErrEndOfStream) {
			return periods
		}
		require.NoError(t, err)
		require.NoError(t, d.Process())
		require.NoError(t, d.Write())
		periods++
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"capture_only", Config{CapturePath: "in.wav", BufferSize: 256}, false},
		{"playback_only", Config{PlaybackPath: "out.wav", SampleRate: 48000, PlaybackChannels: 2, BufferSize: 256}, false},
		{"no_files", Config{BufferSize: 256}, true},
		{"playback_without_rate", Config{PlaybackPath: "out.wav", PlaybackChannels: 2, BufferSize: 256}, true},
		{"playback_without_channels", Config{PlaybackPath: "out.wav", SampleRate: 48000, BufferSize: 256}, true},
		{"bad_bit_depth", Config{CapturePath: "in.wav", BitDepth: 12, BufferSize: 256}, true},
		{"zero_buffer", Config{CapturePath: "in.wav"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, rtaudio.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDriver_CopiesCaptureToPlayback(t *testing.T) {
	for _, bitDepth := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%d_bit", bitDepth), func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "in.wav")
			out := filepath.Join(dir, "out.wav")

			const frames = 1000
			writeTestWAV(t, in, testRate, bitDepth, 2, stereoRamp(frames))

			d, err := New(Config{CapturePath: in, PlaybackPath: out, BufferSize: testBuffer})
			require.NoError(t, err)
			require.NoError(t, d.Open())
			assert.Equal(t, uint32(testRate), d.Params().SampleRate)
			assert.Equal(t, 2, d.Params().InChannels)
			assert.Equal(t, int64(frames), d.CaptureFrames())

			periods := runToEnd(t, d)
			require.NoError(t, d.Close())

			// 1000 frames fill 15 full periods and one padded one.
			assert.Equal(t, 16, periods)
			assert.Equal(t, uint64(16*testBuffer), d.Frames())

			got, dec := readTestWAV(t, out)
			assert.Equal(t, bitDepth, int(dec.BitDepth))
			assert.Equal(t, testRate, int(dec.SampleRate))
			require.Len(t, got.Data, 16*testBuffer*2)
			assert.Equal(t, stereoRamp(frames), got.Data[:frames*2])
			for _, v := range got.Data[frames*2:] {
				assert.Zero(t, v)
			}
		})
	}
}

func TestProbe_FrameCount(t *testing.T) {
	tests := []struct {
		bitDepth int
		channels int
		frames   int
	}{
		{16, 2, 1000},
		{16, 2, 100},
		{16, 1, 1},
		{24, 2, 333},
		{32, 1, 4096},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_bit_%dch_%d", tt.bitDepth, tt.channels, tt.frames), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.wav")
			writeTestWAV(t, path, testRate, tt.bitDepth, tt.channels, make([]int, tt.frames*tt.channels))

			info, err := probe(path)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.frames), info.frames)
			assert.Equal(t, tt.channels, info.channels)
			assert.Equal(t, tt.bitDepth, info.bitDepth)
		})
	}
}

func TestDriver_ScalesToUnitRange(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	writeTestWAV(t, in, testRate, 16, 1, []int{32767, -32767, 0, 16384})

	d, err := New(Config{CapturePath: in, BufferSize: 4})
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer func() { _ = d.Close() }()

	require.NoError(t, d.Read())
	c := d.Capture()[0]
	assert.InDelta(t, 1.0, c[0], 1e-6)
	assert.InDelta(t, -1.0, c[1], 1e-6)
	assert.Zero(t, c[2])
	assert.InDelta(t, 0.5, c[3], 1e-4)
}

func TestDriver_ClipsPlayback(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	d, err := New(Config{
		PlaybackPath:     out,
		SampleRate:       testRate,
		PlaybackChannels: 1,
		BufferSize:       4,
		Process: func(_, playback [][]float32) error {
			copy(playback[0], []float32{2, -2, 0.5, -0.5})
			return nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, d.Open())

	require.NoError(t, d.Read())
	require.NoError(t, d.Process())
	require.NoError(t, d.Write())
	require.NoError(t, d.Close())

	got, _ := readTestWAV(t, out)
	assert.Equal(t, []int{32767, -32767, 16384, -16384}, got.Data)
}

func TestDriver_Loop(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	data := make([]int, 100)
	for i := range data {
		data[i] = i + 1
	}
	writeTestWAV(t, in, testRate, 16, 1, data)

	d, err := New(Config{CapturePath: in, BufferSize: 64, Loop: true})
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer func() { _ = d.Close() }()

	var captured []float32
	for range 5 {
		require.NoError(t, d.Read())
		captured = append(captured, d.Capture()[0]...)
	}

	require.Len(t, captured, 320)
	for i, v := range captured {
		want := float32(i%100+1) / 32767
		assert.InDelta(t, want, v, 1e-7, "frame %d", i)
	}
}

func TestDriver_PacedPeriods(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	writeTestWAV(t, in, testRate, 16, 2, stereoRamp(480*10))

	clock := testutil.NewManualClock()
	d, err := New(Config{CapturePath: in, BufferSize: 480, Paced: true, Clock: clock})
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer func() { _ = d.Close() }()

	start := clock.Now()
	assert.Equal(t, 10, runToEnd(t, d))
	assert.Equal(t, 100*time.Millisecond, clock.Now().Sub(start))
	assert.Zero(t, d.Xruns())
}

func TestDriver_OpenErrors(t *testing.T) {
	dir := t.TempDir()

	d, err := New(Config{CapturePath: filepath.Join(dir, "missing.wav"), BufferSize: 64})
	require.NoError(t, err)
	assert.Error(t, d.Open())
	assert.False(t, d.IsOpen())

	junk := filepath.Join(dir, "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not a wav file, just text"), 0o600))
	d, err = New(Config{CapturePath: junk, BufferSize: 64})
	require.NoError(t, err)
	assert.ErrorIs(t, d.Open(), ErrUnsupportedFormat)

	in := filepath.Join(dir, "in.wav")
	writeTestWAV(t, in, testRate, 16, 2, stereoRamp(64))
	d, err = New(Config{CapturePath: in, BufferSize: 64})
	require.NoError(t, err)
	err = d.OpenWith(rtaudio.OpenParams{
		BufferSize:  64,
		SampleRate:  44100,
		Capturing:   true,
		InChannels:  2,
		CaptureName: in,
	})
	require.ErrorIs(t, err, rtaudio.ErrInvalidConfig)
	assert.False(t, d.IsOpen())

	// A failed open leaves the driver reusable.
	require.NoError(t, d.Open())
	assert.ErrorIs(t, d.Open(), rtaudio.ErrInvalidConfig, "second open")
	assert.ErrorIs(t, d.SetBufferSize(128), rtaudio.ErrInvalidConfig)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.NoError(t, d.SetBufferSize(128))
}

func TestDriver_Closed(t *testing.T) {
	d, err := New(Config{PlaybackPath: "unused.wav", SampleRate: testRate, PlaybackChannels: 1, BufferSize: 64})
	require.NoError(t, err)
	assert.ErrorIs(t, d.Read(), rtaudio.ErrClosed)
	assert.ErrorIs(t, d.Write(), rtaudio.ErrClosed)
	assert.ErrorIs(t, d.Initialize(), rtaudio.ErrClosed)
}

func TestDriver_ThreadedRunEndsAtEndOfStream(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	writeTestWAV(t, in, testRate, 16, 2, stereoRamp(testBuffer*50))

	d, err := New(Config{CapturePath: in, PlaybackPath: out, BufferSize: testBuffer})
	require.NoError(t, err)
	require.NoError(t, d.Open())

	td, err := rtaudio.NewThreadedDriverWith(d, rtaudio.DefaultThreadConfig())
	require.NoError(t, err)
	require.NoError(t, td.Start())

	select {
	case <-td.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("driver thread did not stop at end of stream")
	}
	require.NoError(t, td.Stop())

	var pe *rtaudio.PeriodError
	require.ErrorAs(t, td.Err(), &pe)
	assert.Equal(t, rtaudio.StageRead, pe.Stage)
	assert.Equal(t, uint64(50), pe.Period)
	assert.ErrorIs(t, pe, ErrEndOfStream)

	require.NoError(t, d.Close())
	got, _ := readTestWAV(t, out)
	assert.Equal(t, stereoRamp(testBuffer*50), got.Data)
}
