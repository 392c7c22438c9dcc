package wavfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/simd/f32"
)

// Supported PCM sample formats
const (
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	wavFormatPCM   = 1
	stereoChannels = 2
)

var (
	// ErrUnsupportedFormat is returned for WAV files that are not integer PCM.
	ErrUnsupportedFormat = errors.New("unsupported WAV format")

	// ErrEndOfStream is returned by Read once the capture file is exhausted.
	ErrEndOfStream = errors.New("end of capture stream")
)

// fileInfo describes the PCM stream of a WAV file.
type fileInfo struct {
	rate     int
	channels int
	bitDepth int
	frames   int64
}

// wavInput is an open capture file.
type wavInput struct {
	file    *os.File
	decoder *wav.Decoder
	info    fileInfo
}

// openInput opens and validates a PCM WAV file.
func openInput(path string) (*wavInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		_ = f.Close()
		return nil, fmt.Errorf("%w: audio format %d in %s", ErrUnsupportedFormat, dec.WavAudioFormat, path)
	}

	format := dec.Format()
	info := fileInfo{
		rate:     format.SampleRate,
		channels: format.NumChannels,
		bitDepth: int(dec.BitDepth),
	}
	if maxValue(info.bitDepth) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %d-bit samples in %s", ErrUnsupportedFormat, info.bitDepth, path)
	}
	if err := dec.FwdToPCM(); err != nil || dec.PCMChunk == nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: no PCM data in %s", ErrUnsupportedFormat, path)
	}
	info.frames = dec.PCMLen() / int64(info.channels*info.bitDepth/8)

	return &wavInput{file: f, decoder: dec, info: info}, nil
}

// probe reads the stream description of a WAV file.
func probe(path string) (fileInfo, error) {
	in, err := openInput(path)
	if err != nil {
		return fileInfo{}, err
	}
	info := in.info
	return info, in.Close()
}

// rewind restarts decoding at the first frame.
func (w *wavInput) rewind() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind capture file: %w", err)
	}
	w.decoder = wav.NewDecoder(w.file)
	return w.decoder.FwdToPCM()
}

// Close closes the input file.
func (w *wavInput) Close() error {
	return w.file.Close()
}

// wavOutput is an open playback file.
type wavOutput struct {
	file    *os.File
	encoder *wav.Encoder
	format  *audio.Format
	written bool
}

func createOutput(path string, rate, bitDepth, channels int) (*wavOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create playback file: %w", err)
	}
	return &wavOutput{
		file:    f,
		encoder: wav.NewEncoder(f, rate, bitDepth, channels, wavFormatPCM),
		format:  &audio.Format{NumChannels: channels, SampleRate: rate},
	}, nil
}

// Write encodes buf.
func (w *wavOutput) Write(buf *audio.IntBuffer) error {
	w.written = true
	return w.encoder.Write(buf)
}

// Close finalizes the WAV header and closes the file. A file that never
// received a period still gets a valid header.
func (w *wavOutput) Close() error {
	var err error
	if !w.written {
		err = w.Write(&audio.IntBuffer{Format: w.format})
	}
	return errors.Join(err, w.encoder.Close(), w.file.Close())
}

// maxValue returns the full-scale sample value for the bit depth, or zero
// for an unsupported depth.
func maxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return 0
	}
}

// deinterleaveInto splits interleaved samples into per-channel buffers
// scaled to [-1, 1].
func deinterleaveInto(data []int, channels [][]float32, frames int, invMax float32) {
	n := len(channels)
	for ch, buf := range channels {
		for i := range frames {
			buf[i] = float32(data[i*n+ch])
		}
		f32.Scale(buf[:frames], buf[:frames], invMax)
	}
}

// interleaveInto merges per-channel buffers into dst as integer samples,
// clipping to full scale. tmp must hold frames*2 values for stereo.
func interleaveInto(channels [][]float32, dst []int, tmp []float32, frames int, maxVal float64) {
	if len(channels) == stereoChannels {
		f32.Interleave2(tmp[:frames*stereoChannels], channels[0][:frames], channels[1][:frames])
		for i, s := range tmp[:frames*stereoChannels] {
			dst[i] = quantize(s, maxVal)
		}
		return
	}

	n := len(channels)
	for ch, buf := range channels {
		for i := range frames {
			dst[i*n+ch] = quantize(buf[i], maxVal)
		}
	}
}

func quantize(s float32, maxVal float64) int {
	v := float64(s)
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(math.Round(v * maxVal))
}
