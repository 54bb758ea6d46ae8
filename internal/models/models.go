// Package models holds the JSON request and response bodies of the HTTP API.
package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadResponse is returned after a PDF has been extracted.
type UploadResponse struct {
	SessionID    uuid.UUID `json:"session_id"`
	DocumentName string    `json:"document_name"`
	Characters   int       `json:"characters"`
	Message      string    `json:"message"`
}

// SessionResponse describes the current study session.
type SessionResponse struct {
	SessionID    uuid.UUID `json:"session_id"`
	DocumentName string    `json:"document_name"`
	Characters   int       `json:"characters"`
	HasQuiz      bool      `json:"has_quiz"`
	Submitted    bool      `json:"submitted"`
	Score        string    `json:"score,omitempty"`
	ReportURL    string    `json:"report_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AskRequest is a free-form question about the uploaded document.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse carries the model's answer verbatim.
type AskResponse struct {
	Answer string `json:"answer"`
}

// GenerateQuizRequest asks for a new multiple-choice quiz.
type GenerateQuizRequest struct {
	NumQuestions int `json:"num_questions" binding:"required"`
}

// Question is one quiz block as shown to the user. The correct letter is never
// included.
type Question struct {
	Number   int      `json:"number"`
	Text     string   `json:"text"`
	Choices  []string `json:"choices"`
	Selected string   `json:"selected"`
}

// QuizResponse is the current quiz with the user's selections.
type QuizResponse struct {
	Requested int        `json:"requested"`
	Questions []Question `json:"questions"`
	Submitted bool       `json:"submitted"`
	Warning   string     `json:"warning,omitempty"`
}

// AnswerRequest selects a choice for one question. An empty answer clears it.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// Outcome is the graded result of one question.
type Outcome struct {
	Number   int    `json:"number"`
	Selected string `json:"selected"`
	Correct  string `json:"correct"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// SubmitResponse is returned after grading.
type SubmitResponse struct {
	Outcomes  []Outcome `json:"outcomes"`
	Warnings  []string  `json:"warnings"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
	Score     string    `json:"score"`
	Summary   string    `json:"summary"`
	ReportURL string    `json:"report_url,omitempty"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
