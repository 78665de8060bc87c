package wav_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyiyo/wordcards-backend/internal/core/wav"
)

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x01, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x10, 0x20}
	out := wav.Encode(pcm, wav.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16})

	require.Len(t, out, wav.HeaderSize+len(pcm))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(out[4:8]))

	f, data, err := wav.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, wav.DefaultFormat, f)
	assert.Equal(t, pcm, data)
}

func TestEncode_HeaderFields(t *testing.T) {
	t.Parallel()

	out := wav.Encode(make([]byte, 10), wav.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16})
	le := binary.LittleEndian

	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, uint32(16), le.Uint32(out[16:20]))
	assert.Equal(t, uint16(1), le.Uint16(out[20:22]))
	assert.Equal(t, uint16(2), le.Uint16(out[22:24]))
	assert.Equal(t, uint32(44100), le.Uint32(out[24:28]))
	assert.Equal(t, uint32(44100*2*2), le.Uint32(out[28:32]))
	assert.Equal(t, uint16(4), le.Uint16(out[32:34]))
	assert.Equal(t, uint16(16), le.Uint16(out[34:36]))
	assert.Equal(t, "data", string(out[36:40]))
	assert.Equal(t, uint32(10), le.Uint32(out[40:44]))
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	pcm := []byte("some pcm bytes")
	assert.Equal(t, wav.Encode(pcm, wav.Format{}), wav.Encode(pcm, wav.DefaultFormat))
}

func TestEncode_Empty(t *testing.T) {
	t.Parallel()

	out := wav.Encode(nil, wav.DefaultFormat)
	require.Len(t, out, wav.HeaderSize)
	assert.True(t, wav.IsWAV(out))

	_, data, err := wav.Parse(out)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestIsWAV(t *testing.T) {
	t.Parallel()

	assert.False(t, wav.IsWAV(nil))
	assert.False(t, wav.IsWAV([]byte("RIFF")))
	assert.False(t, wav.IsWAV([]byte(`{"error":"nope"}`)))
	assert.True(t, wav.IsWAV([]byte("RIFF\x00\x00\x00\x00WAVE")))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := wav.Parse([]byte("short"))
	require.ErrorIs(t, err, wav.ErrShortHeader)

	bad := wav.Encode([]byte{1, 2}, wav.DefaultFormat)
	copy(bad[0:4], "JUNK")
	_, _, err = wav.Parse(bad)
	require.ErrorIs(t, err, wav.ErrNotWAV)

	truncated := wav.Encode([]byte{1, 2, 3, 4}, wav.DefaultFormat)[:wav.HeaderSize+2]
	_, _, err = wav.Parse(truncated)
	require.ErrorIs(t, err, wav.ErrShortHeader)
}
