package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const HeaderSize = 44

var (
	ErrShortHeader = errors.New("wav: buffer shorter than header")
	ErrNotWAV      = errors.New("wav: missing RIFF/WAVE signature")
	ErrNotPCM      = errors.New("wav: not a canonical PCM file")
)

type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat matches the 24 kHz mono 16-bit PCM the generative speech API returns.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

func (f Format) withDefaults() Format {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultFormat.SampleRate
	}
	if f.Channels <= 0 {
		f.Channels = DefaultFormat.Channels
	}
	if f.BitsPerSample <= 0 {
		f.BitsPerSample = DefaultFormat.BitsPerSample
	}
	return f
}

func (f Format) ByteRate() int   { return f.SampleRate * f.Channels * f.BitsPerSample / 8 }
func (f Format) BlockAlign() int { return f.Channels * f.BitsPerSample / 8 }

// Encode wraps raw little-endian PCM in a canonical 44-byte WAV header.
// The PCM bytes are copied unmodified after the header.
func Encode(pcm []byte, f Format) []byte {
	f = f.withDefaults()
	out := make([]byte, HeaderSize+len(pcm))
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1)
	le.PutUint16(out[22:24], uint16(f.Channels))
	le.PutUint32(out[24:28], uint32(f.SampleRate))
	le.PutUint32(out[28:32], uint32(f.ByteRate()))
	le.PutUint16(out[32:34], uint16(f.BlockAlign()))
	le.PutUint16(out[34:36], uint16(f.BitsPerSample))

	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[HeaderSize:], pcm)
	return out
}

// IsWAV reports whether b starts with the RIFF....WAVE signature.
func IsWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
}

// Parse reads a canonical header back and returns the format and the data subchunk.
func Parse(b []byte) (Format, []byte, error) {
	if len(b) < HeaderSize {
		return Format{}, nil, ErrShortHeader
	}
	if !IsWAV(b) {
		return Format{}, nil, ErrNotWAV
	}
	le := binary.LittleEndian
	if string(b[12:16]) != "fmt " || le.Uint16(b[20:22]) != 1 || string(b[36:40]) != "data" {
		return Format{}, nil, ErrNotPCM
	}
	f := Format{
		Channels:      int(le.Uint16(b[22:24])),
		SampleRate:    int(le.Uint32(b[24:28])),
		BitsPerSample: int(le.Uint16(b[34:36])),
	}
	size := int(le.Uint32(b[40:44]))
	if size > len(b)-HeaderSize {
		return Format{}, nil, ErrShortHeader
	}
	return f, b[HeaderSize : HeaderSize+size], nil
}
