package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mindmate/internal/config"
	"mindmate/internal/extract"
	"mindmate/internal/models"
	"mindmate/internal/study"
)

// HandleUploadDocument extracts the text of an uploaded PDF and starts a new
// study session for it. Whatever the caller had before (quiz, answers, report)
// is discarded.
func (h *Handler) HandleUploadDocument(c *gin.Context) {
	ctx := c.Request.Context()

	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleError(c, http.StatusRequestEntityTooLarge, "Upload document", fmt.Errorf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.handleError(c, http.StatusBadRequest, "Upload document", fmt.Errorf("missing multipart field \"file\": %w", err))
		return
	}
	if !extract.IsPDF(fileHeader.Filename) {
		h.handleError(c, http.StatusBadRequest, "Upload document", extract.ErrNotPDF)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Open uploaded file", err)
		return
	}
	defer file.Close()

	text, err := h.Extractor.Text(file)
	if err != nil {
		h.handleError(c, 0, "Extract text", err)
		return
	}

	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"document": fileHeader.Filename,
		"size":     fileHeader.Size,
		"chars":    len(text),
	})
	if text == "" {
		log.Warn("no text extracted from document")
	}

	prev, prevErr := h.loadSession(c)

	sess := study.New(fileHeader.Filename, text)
	if err := h.Store.Save(ctx, sess); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Save study session", err)
		return
	}
	if err := bindSession(c, sess.ID); err != nil {
		if delErr := h.Store.Delete(ctx, sess.ID); delErr != nil {
			log.WithError(delErr).Warn("failed to delete unbound study session")
		}
		h.handleError(c, http.StatusInternalServerError, "Save study session", err)
		return
	}

	// The old session is only dropped once the new one is reachable.
	if prevErr == nil {
		if err := h.Store.Delete(ctx, prev.ID); err != nil {
			log.WithError(err).Warn("failed to delete previous study session")
		}
	}

	log.WithField("session_id", sess.ID).Info("document uploaded")
	c.JSON(http.StatusCreated, models.UploadResponse{
		SessionID:    sess.ID,
		DocumentName: sess.DocumentName,
		Characters:   len(text),
		Message:      "PDF uploaded and processed!",
	})
}

// HandleGetSession summarises the caller's study session.
func (h *Handler) HandleGetSession(c *gin.Context) {
	sess, err := h.loadSession(c)
	if err != nil {
		h.handleError(c, 0, "Load study session", err)
		return
	}

	resp := models.SessionResponse{
		SessionID:    sess.ID,
		DocumentName: sess.DocumentName,
		Characters:   len(sess.DocumentText),
		HasQuiz:      sess.HasQuiz(),
		Submitted:    sess.Result != nil,
		ReportURL:    sess.ReportURL,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	}
	if sess.Result != nil {
		resp.Score = sess.Result.Score()
	}
	c.JSON(http.StatusOK, resp)
}
