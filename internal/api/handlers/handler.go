package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mindmate/internal/config"
	"mindmate/internal/extract"
	"mindmate/internal/gemini"
	"mindmate/internal/models"
	"mindmate/internal/quiz"
	"mindmate/internal/study"
)

// StudySessionKey is the cookie session key holding the study session ID.
const StudySessionKey = "study_session_id"

// ErrNoDocument is returned when an action needs a document but none has been
// uploaded in this browser session.
var ErrNoDocument = errors.New("upload a PDF document first")

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	Text(r io.Reader) (string, error)
}

// ReportUploader archives a rendered report and returns where it can be read.
type ReportUploader interface {
	UploadReport(ctx context.Context, sessionID uuid.UUID, filename string, body io.Reader) (string, error)
}

// Handler contains the API handlers dependencies
type Handler struct {
	Store          study.Store
	Generator      gemini.Generator
	Extractor      Extractor
	Reports        ReportUploader // nil disables archiving
	MaxUploadBytes int64
}

// NewHandler creates a new Handler
func NewHandler(store study.Store, generator gemini.Generator, extractor Extractor, reports ReportUploader, maxUploadBytes int64) *Handler {
	return &Handler{
		Store:          store,
		Generator:      generator,
		Extractor:      extractor,
		Reports:        reports,
		MaxUploadBytes: maxUploadBytes,
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "UP"})
}

// loadSession returns the study session bound to the caller's cookie.
func (h *Handler) loadSession(c *gin.Context) (*study.Session, error) {
	raw, ok := sessions.Default(c).Get(StudySessionKey).(string)
	if !ok || raw == "" {
		return nil, ErrNoDocument
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrNoDocument
	}
	return h.Store.Get(c.Request.Context(), id)
}

// bindSession points the caller's cookie at id.
func bindSession(c *gin.Context, id uuid.UUID) error {
	s := sessions.Default(c)
	s.Set(StudySessionKey, id.String())
	if err := s.Save(); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	return nil
}

// statusFor maps the errors of the study and quiz layers to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoDocument),
		errors.Is(err, study.ErrNotFound),
		errors.Is(err, study.ErrNoQuiz),
		errors.Is(err, study.ErrNoReport):
		return http.StatusConflict
	case errors.Is(err, study.ErrQuestionIndex),
		errors.Is(err, study.ErrInvalidChoice),
		errors.Is(err, quiz.ErrQuestionCount),
		errors.Is(err, quiz.ErrEmptyQuestion),
		errors.Is(err, extract.ErrNotPDF),
		errors.Is(err, extract.ErrInvalidPDF),
		errors.Is(err, extract.ErrEmptyDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// modelStatus is the status for a failed model call.
func modelStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// handleError logs err with the request's fields and aborts with a JSON error
// body. A status of 0 derives the status from err. Only client errors carry the
// error text in the body.
func (h *Handler) handleError(c *gin.Context, status int, action string, err error) {
	if status == 0 {
		status = statusFor(err)
	}

	entry := config.WithContext(c.Request.Context()).WithFields(logrus.Fields{
		"action": action,
		"status": status,
		"path":   c.Request.URL.Path,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: action + ": " + publicMessage(status, err)})
}

// publicMessage is the part of an error shown to the caller. Server-side and
// upstream failures are summarised; their detail stays in the log.
func publicMessage(status int, err error) string {
	switch {
	case status == http.StatusBadGateway:
		return "model request failed"
	case status == http.StatusGatewayTimeout:
		return "model request timed out"
	case status >= http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}
