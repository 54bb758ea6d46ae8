package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mindmate/internal/config"
	"mindmate/internal/models"
	"mindmate/internal/quiz"
)

// HandleAsk answers a free-form question using the uploaded document as
// context. The model's reply is returned verbatim.
func (h *Handler) HandleAsk(c *gin.Context) {
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Bind ask request", err)
		return
	}

	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}

	prompt, err := quiz.QuestionPrompt(sess.DocumentText, req.Question)
	if err != nil {
		h.handleError(c, 0, "Build question prompt", err)
		return
	}

	answer, err := h.Generator.GenerateText(c.Request.Context(), prompt)
	if err != nil {
		h.handleError(c, modelStatus(err), "Generate answer", err)
		return
	}

	config.WithContext(c.Request.Context()).WithField("session_id", sess.ID).Info("question answered")
	c.JSON(http.StatusOK, models.AskResponse{Answer: answer})
}
