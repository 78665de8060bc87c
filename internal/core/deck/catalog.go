package deck

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed content.json
var defaultContent []byte

type Card struct {
	ID     string `yaml:"-" json:"id"`
	Emoji  string `yaml:"emoji" json:"emoji,omitempty"`
	Word   string `yaml:"word" json:"word"`
	Phrase string `yaml:"phrase" json:"phrase"`
}

func (c Card) complete() bool {
	return strings.TrimSpace(c.Word) != "" && strings.TrimSpace(c.Phrase) != ""
}

// Catalog is the read-only table of registered cards, in file order.
type Catalog struct {
	cards []Card
	byID  map[string]Card
}

// LoadCatalog reads a YAML or JSON card table from path, or the bundled
// table when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultContent)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog accepts a mapping of card id to {word, phrase[, emoji]}.
// Entries missing a word or phrase are left out.
func ParseCatalog(data []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	cat := &Catalog{byID: map[string]Card{}}
	if root.Kind == 0 {
		return cat, nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse content: top level must be a mapping of card id to entry")
	}
	m := root.Content[0]
	seen := map[string]bool{}
	for i := 0; i+1 < len(m.Content); i += 2 {
		id := strings.TrimSpace(m.Content[i].Value)
		var card Card
		if err := m.Content[i+1].Decode(&card); err != nil {
			return nil, fmt.Errorf("parse content %q: %w", id, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("parse content: duplicate card id %q", id)
		}
		seen[id] = true
		card.ID = id
		card.Word = strings.TrimSpace(card.Word)
		card.Phrase = strings.TrimSpace(card.Phrase)
		if id == "" || !card.complete() {
			continue
		}
		cat.byID[id] = card
		cat.cards = append(cat.cards, card)
	}
	return cat, nil
}

func (c *Catalog) Lookup(id string) (Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

func (c *Catalog) List() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	return out
}

func (c *Catalog) Len() int { return len(c.cards) }
