// Package deck resolves word cards, registered or ad hoc, into the audio URLs
// for their word and phrase.
package deck

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/steveyiyo/wordcards-backend/internal/core/cachekey"
)

// AdhocID groups clips synthesized for text that is not a registered card.
const AdhocID = "adhoc"

var (
	ErrInvalidInput = errors.New("missing required fields: word, phrase")
	ErrUnknownCard  = errors.New("unknown flashcard id")
)

type Clips interface {
	GetOrCreateURL(ctx context.Context, logicalID, voice string, kind cachekey.Kind, text string) (string, error)
}

type Audio struct {
	WordURL   string
	PhraseURL string
}

type Service struct {
	Catalog *Catalog
	Clips   Clips
	Voice   string
	// Engine and Version change the validators whenever the audio would.
	Engine  string
	Version string
	Log     *log.Logger
}

func NewService(cat *Catalog, clips Clips, voice, engine, version string, logger *log.Logger) *Service {
	return &Service{
		Catalog: cat,
		Clips:   clips,
		Voice:   voice,
		Engine:  engine,
		Version: version,
		Log:     logger.WithPrefix("deck"),
	}
}

func (s *Service) Card(id string) (Card, error) {
	card, ok := s.Catalog.Lookup(strings.TrimSpace(id))
	if !ok {
		return Card{}, ErrUnknownCard
	}
	return card, nil
}

func (s *Service) Cards() []Card { return s.Catalog.List() }

// CardSeed identifies the response for a registered card.
func (s *Service) CardSeed(c Card) []string {
	return []string{s.Engine, s.Version, s.Voice, c.ID, c.Word, c.Phrase}
}

// AdhocSeed identifies the response for literal text.
func (s *Service) AdhocSeed(word, phrase string) []string {
	return []string{s.Engine, s.Version, s.Voice, strings.TrimSpace(word), strings.TrimSpace(phrase)}
}

func (s *Service) Adhoc(ctx context.Context, word, phrase string) (Audio, error) {
	word, phrase = strings.TrimSpace(word), strings.TrimSpace(phrase)
	if word == "" || phrase == "" {
		return Audio{}, ErrInvalidInput
	}
	return s.resolve(ctx, AdhocID, word, phrase)
}

func (s *Service) CardAudio(ctx context.Context, c Card) (Audio, error) {
	return s.resolve(ctx, c.ID, c.Word, c.Phrase)
}

// resolve fetches word and phrase clips in parallel; both must succeed.
func (s *Service) resolve(ctx context.Context, logicalID, word, phrase string) (Audio, error) {
	var out Audio
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.Clips.GetOrCreateURL(gctx, logicalID, s.Voice, cachekey.KindWord, word)
		out.WordURL = url
		return err
	})
	g.Go(func() error {
		url, err := s.Clips.GetOrCreateURL(gctx, logicalID, s.Voice, cachekey.KindPhrase, phrase)
		out.PhraseURL = url
		return err
	})
	if err := g.Wait(); err != nil {
		s.Log.Error("resolve audio", "id", logicalID, "err", err)
		return Audio{}, err
	}
	return out, nil
}
