package handlers

import (
	"log"
	"net/http"

	"secadvisor-backend/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles HTTP requests for persona-driven advice chat
type ChatHandler struct {
	adviceService *service.AdviceService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(adviceService *service.AdviceService) *ChatHandler {
	return &ChatHandler{adviceService: adviceService}
}

// ChatRequest represents the request body for a chat turn
type ChatRequest struct {
	Message string `json:"message"`
	Persona string `json:"persona"`
	Ticker  string `json:"ticker"`
}

// Chat handles POST /api/chat. Upstream failures never surface as HTTP
// errors here: the response is always 200 with either a grounded or a
// canned reply.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing message"})
		return
	}
	if req.Persona == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing persona"})
		return
	}

	log.Printf("POST /api/chat: persona=%s ticker=%q", req.Persona, req.Ticker)

	result := h.adviceService.Advise(c.Request.Context(), req.Message, req.Persona, req.Ticker)

	if result.Fallback {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"reply":       result.Reply,
			"contextUsed": 0,
			"note":        result.Note,
		})
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []service.AdviceSource{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"reply":       result.Reply,
		"contextUsed": result.ContextUsed,
		"sources":     sources,
	})
}
