// Package cachekey derives the identifiers every cache tier uses for a
// synthesis result. All functions are pure.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

const (
	maxSegmentLen = 80
	hashLen       = 16
)

type Kind string

const (
	KindWord   Kind = "word"
	KindPhrase Kind = "phrase"
)

// Normalize collapses whitespace runs to a single space and trims both ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Key identifies one synthesis result. Text is always normalized.
type Key struct {
	Engine string
	Voice  string
	Text   string
}

func New(engine, voice, text string) Key {
	return Key{Engine: engine, Voice: voice, Text: Normalize(text)}
}

func (k Key) digest() string {
	h := sha256.New()
	h.Write([]byte(k.Engine))
	h.Write([]byte{0})
	h.Write([]byte(k.Voice))
	h.Write([]byte{0})
	h.Write([]byte(k.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// String is the in-process memo key.
func (k Key) String() string { return k.digest() }

// ContentHash is the short digest used in persistent object paths.
func (k Key) ContentHash() string { return k.digest()[:hashLen] }

// Sanitize maps s to a URL and filesystem safe path segment.
func Sanitize(s, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			// whitespace and anything else becomes a separator
			b.WriteByte('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.Trim(out, "-.")
	if len(out) > maxSegmentLen {
		out = strings.Trim(out[:maxSegmentLen], "-.")
	}
	if out == "" {
		return fallback
	}
	return out
}

// ObjectPath is the content-addressed location of a clip in the object store:
// tts/<version>/<voice>/<logical id>/<kind>-<hash>.wav
func ObjectPath(version, voice, logicalID string, kind Kind, k Key) string {
	return path.Join(
		"tts",
		Sanitize(version, "v1"),
		Sanitize(voice, "voice"),
		Sanitize(logicalID, "card"),
		string(kind)+"-"+k.ContentHash()+".wav",
	)
}
