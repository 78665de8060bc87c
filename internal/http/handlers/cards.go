package handlers

import (
	"net/http"

	"github.com/steveyiyo/wordcards-backend/internal/core/deck"
	"github.com/steveyiyo/wordcards-backend/internal/core/httpcache"
	"github.com/steveyiyo/wordcards-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type CardsHandler struct {
	Deck *deck.Service
}

func NewCardsHandler(d *deck.Service) *CardsHandler {
	return &CardsHandler{Deck: d}
}

func (h *CardsHandler) List(c *gin.Context) {
	cards := h.Deck.Cards()
	seed := make([]string, 0, len(cards)*3)
	resp := types.CardsResp{Cards: make([]types.CardResp, 0, len(cards))}
	for _, card := range cards {
		seed = append(seed, card.ID, card.Word, card.Phrase)
		resp.Cards = append(resp.Cards, types.CardResp{
			ID:     card.ID,
			Emoji:  card.Emoji,
			Word:   card.Word,
			Phrase: card.Phrase,
		})
	}
	if httpcache.Apply(c, httpcache.ETag(seed...)) {
		return
	}
	c.JSON(http.StatusOK, resp)
}
