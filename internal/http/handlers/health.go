package handlers

import (
	"net/http"

	"github.com/steveyiyo/wordcards-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Info types.HealthResp
}

func NewHealthHandler(backend, engine, store, voice string) *HealthHandler {
	return &HealthHandler{Info: types.HealthResp{
		Status:  "ok",
		Backend: backend,
		Engine:  engine,
		Store:   store,
		Voice:   voice,
	}}
}

func (h *HealthHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.Info)
}
