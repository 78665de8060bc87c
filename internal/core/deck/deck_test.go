package deck_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyiyo/wordcards-backend/internal/core/cachekey"
	"github.com/steveyiyo/wordcards-backend/internal/core/deck"
)

func TestLoadCatalog_Embedded(t *testing.T) {
	t.Parallel()

	cat, err := deck.LoadCatalog("")
	require.NoError(t, err)

	dog, ok := cat.Lookup("dog")
	require.True(t, ok)
	assert.Equal(t, "Dog", dog.Word)
	assert.NotEmpty(t, dog.Phrase)
	assert.Equal(t, "dog", cat.List()[0].ID)
}

func TestParseCatalog_YAML(t *testing.T) {
	t.Parallel()

	cat, err := deck.ParseCatalog([]byte(`
owl:
  word: Owl
  phrase: The owl hoots at night.
bee:
  word: "  Bee "
  phrase: The bee buzzes.
broken:
  word: Nothing
`))
	require.NoError(t, err)

	ids := []string{}
	for _, c := range cat.List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"owl", "bee"}, ids)

	bee, ok := cat.Lookup("bee")
	require.True(t, ok)
	assert.Equal(t, "Bee", bee.Word)

	_, ok = cat.Lookup("broken")
	assert.False(t, ok)
}

func TestParseCatalog_Errors(t *testing.T) {
	t.Parallel()

	_, err := deck.ParseCatalog([]byte(`[1, 2, 3]`))
	require.Error(t, err)

	_, err = deck.ParseCatalog([]byte("a: {word: A, phrase: x}\na: {word: B, phrase: y}\n"))
	require.Error(t, err)

	// An incomplete first entry still claims its id.
	_, err = deck.ParseCatalog([]byte("a: {word: A, phrase: \"\"}\na: {word: B, phrase: y}\n"))
	require.ErrorContains(t, err, "duplicate card id")
}

func TestLoadCatalog_File(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"hen": {"word": "Hen", "phrase": "The hen lays an egg."}}`), 0o600))

	cat, err := deck.LoadCatalog(p)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())

	_, err = deck.LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

type call struct {
	id   string
	kind cachekey.Kind
	text string
}

type fakeClips struct {
	mu      sync.Mutex
	calls   []call
	fail    cachekey.Kind
	started chan struct{}
	release chan struct{}
}

func (f *fakeClips) GetOrCreateURL(ctx context.Context, id, voice string, kind cachekey.Kind, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{id, kind, text})
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if kind == f.fail {
		return "", errors.New("upstream 500")
	}
	return "https://cdn/" + id + "/" + string(kind) + "/" + voice, nil
}

func newService(t *testing.T, clips deck.Clips) *deck.Service {
	t.Helper()
	cat, err := deck.LoadCatalog("")
	require.NoError(t, err)
	return deck.NewService(cat, clips, "Kore", "engine", "v1", log.New(io.Discard))
}

func TestAdhoc(t *testing.T) {
	t.Parallel()

	f := &fakeClips{}
	svc := newService(t, f)

	audio, err := svc.Adhoc(context.Background(), "  Owl ", "The owl hoots.")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/adhoc/word/Kore", audio.WordURL)
	assert.Equal(t, "https://cdn/adhoc/phrase/Kore", audio.PhraseURL)
	assert.ElementsMatch(t, []call{
		{deck.AdhocID, cachekey.KindWord, "Owl"},
		{deck.AdhocID, cachekey.KindPhrase, "The owl hoots."},
	}, f.calls)
}

func TestAdhoc_BlankFields(t *testing.T) {
	t.Parallel()

	f := &fakeClips{}
	svc := newService(t, f)

	for _, in := range [][2]string{{"", "hi"}, {"dog", "   "}, {"\t", ""}} {
		_, err := svc.Adhoc(context.Background(), in[0], in[1])
		require.ErrorIs(t, err, deck.ErrInvalidInput)
	}
	assert.Empty(t, f.calls)
}

func TestCardAudio_RunsConcurrently(t *testing.T) {
	t.Parallel()

	f := &fakeClips{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(t, f)
	card, err := svc.Card("dog")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.CardAudio(context.Background(), card)
		done <- err
	}()

	// Both lookups must be in progress before either is allowed to finish.
	for range 2 {
		select {
		case <-f.started:
		case <-time.After(time.Second):
			t.Fatal("word and phrase were not resolved in parallel")
		}
	}
	close(f.release)
	require.NoError(t, <-done)
}

func TestCardAudio_EitherFailureFails(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeClips{fail: cachekey.KindPhrase})
	card, err := svc.Card("cat")
	require.NoError(t, err)

	_, err = svc.CardAudio(context.Background(), card)
	require.Error(t, err)
}

func TestCard_Unknown(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeClips{})
	_, err := svc.Card("nonexistent")
	require.ErrorIs(t, err, deck.ErrUnknownCard)
}

func TestSeeds(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeClips{})
	dog, _ := svc.Card("dog")
	cat, _ := svc.Card("cat")

	assert.Equal(t, svc.CardSeed(dog), svc.CardSeed(dog))
	assert.NotEqual(t, svc.CardSeed(dog), svc.CardSeed(cat))
	assert.Equal(t, svc.AdhocSeed(" Dog", "x "), svc.AdhocSeed("Dog", "x"))
}
