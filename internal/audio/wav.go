package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Format describes PCM sample layout.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is used when the keep-alive starts before any sound has
// been played. Sounds in other layouts are converted to the open device's.
var DefaultFormat = Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

var errNotWAV = errors.New("not a RIFF/WAVE file")

// parseWAV returns the format and PCM payload of a WAV file.
func parseWAV(data []byte) (Format, []byte, error) {
	var f Format
	r := bytes.NewReader(data)

	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return f, nil, errNotWAV
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return f, nil, errNotWAV
	}

	haveFmt := false
	for {
		var id [4]byte
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return f, nil, errors.New("wav: missing data chunk")
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return f, nil, fmt.Errorf("wav: chunk size: %w", err)
		}

		switch string(id[:]) {
		case "fmt ":
			var chunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if size < 16 {
				return f, nil, fmt.Errorf("wav: fmt chunk too short (%d)", size)
			}
			if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
				return f, nil, fmt.Errorf("wav: fmt chunk: %w", err)
			}
			if chunk.AudioFormat != 1 {
				return f, nil, fmt.Errorf("wav: unsupported encoding %d, want PCM", chunk.AudioFormat)
			}
			f = Format{SampleRate: int(chunk.SampleRate), Channels: int(chunk.Channels), BitDepth: int(chunk.BitsPerSample)}
			haveFmt = true
			if _, err := r.Seek(int64(size-16), io.SeekCurrent); err != nil {
				return f, nil, err
			}
		case "data":
			if !haveFmt {
				return f, nil, errors.New("wav: data chunk before fmt chunk")
			}
			if int64(size) > int64(r.Len()) {
				size = uint32(r.Len())
			}
			pcm := make([]byte, size)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return f, nil, fmt.Errorf("wav: data chunk: %w", err)
			}
			return f, pcm, nil
		default:
			// Chunks are word aligned.
			skip := int64(size) + int64(size&1)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return f, nil, err
			}
		}
	}
}

// convertPCM converts 16-bit PCM from one layout to another. Channels are
// mixed down or duplicated and the rate is resampled linearly.
func convertPCM(pcm []byte, from, to Format) ([]byte, error) {
	if from == to {
		return pcm, nil
	}
	if from.BitDepth != 16 || to.BitDepth != 16 ||
		from.Channels < 1 || to.Channels < 1 ||
		from.SampleRate <= 0 || to.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: have %+v, device %+v", ErrFormatMismatch, from, to)
	}

	frames := len(pcm) / (2 * from.Channels)
	if frames == 0 {
		return nil, nil
	}

	// Remap channels into to.Channels samples per frame.
	src := make([]float64, frames*to.Channels)
	in := make([]float64, from.Channels)
	for i := range frames {
		for c := range in {
			off := (i*from.Channels + c) * 2
			in[c] = float64(int16(binary.LittleEndian.Uint16(pcm[off:])))
		}
		for k := range to.Channels {
			var v float64
			switch {
			case from.Channels == to.Channels:
				v = in[k]
			case to.Channels == 1:
				for _, x := range in {
					v += x
				}
				v /= float64(from.Channels)
			default:
				v = in[k%from.Channels]
			}
			src[i*to.Channels+k] = v
		}
	}

	outFrames := int(int64(frames) * int64(to.SampleRate) / int64(from.SampleRate))
	out := make([]byte, outFrames*to.Channels*2)
	step := float64(from.SampleRate) / float64(to.SampleRate)
	for j := range outFrames {
		pos := float64(j) * step
		i0 := min(int(pos), frames-1)
		i1 := min(i0+1, frames-1)
		frac := pos - float64(i0)
		for k := range to.Channels {
			v := src[i0*to.Channels+k]*(1-frac) + src[i1*to.Channels+k]*frac
			v = math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v)))
			binary.LittleEndian.PutUint16(out[(j*to.Channels+k)*2:], uint16(int16(v)))
		}
	}
	return out, nil
}
