package tts

import (
	"errors"
	"fmt"
	"net/http"
)

const maxDetailLen = 300

var (
	ErrNoAudio            = errors.New("no audio data generated")
	ErrUnexpectedResponse = errors.New("unexpected response from TTS service: expected audio/wav")
	ErrTimeout            = errors.New("TTS request timed out")
)

// ConfigError is a deployment defect: a credential or endpoint is missing or invalid.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// UpstreamError carries a non-success status from the synthesis backend.
type UpstreamError struct {
	Backend string
	Status  int
	Detail  string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s TTS failed (%d %s)", e.Backend, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
