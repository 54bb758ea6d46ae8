// Package study holds the per-user state of a study session: the uploaded
// document, the generated quiz, the user's answers and the last graded result.
package study

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindmate/internal/quiz"
)

var (
	ErrNotFound      = errors.New("study session not found")
	ErrNoQuiz        = errors.New("no quiz has been generated")
	ErrNoReport      = errors.New("no report has been generated")
	ErrQuestionIndex = errors.New("question index out of range")
	ErrInvalidChoice = errors.New("answer must be one of A, B, C, D")
)

// Session is the state of one user's study session. A new upload replaces the
// whole session; nothing carries over from the previous document.
type Session struct {
	ID           uuid.UUID    `json:"id"`
	DocumentName string       `json:"document_name"`
	DocumentText string       `json:"document_text"`
	Requested    int          `json:"requested"`
	QuizText     string       `json:"quiz_text"`
	Items        []quiz.Item  `json:"items"`
	Answers      []string     `json:"answers"`
	Result       *quiz.Result `json:"result,omitempty"`
	Report       []byte       `json:"report,omitempty"`
	ReportURL    string       `json:"report_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// New starts a session for a freshly extracted document.
func New(documentName, documentText string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.New(),
		DocumentName: documentName,
		DocumentText: documentText,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasQuiz reports whether a quiz is loaded. A quiz whose text yielded no items
// still counts.
func (s *Session) HasQuiz() bool {
	return s.QuizText != ""
}

// SetQuiz replaces the current quiz. Answers, result and report are cleared.
func (s *Session) SetQuiz(requested int, text string, items []quiz.Item) {
	s.Requested = requested
	s.QuizText = text
	s.Items = items
	s.Answers = make([]string, len(items))
	s.Result = nil
	s.Report = nil
	s.ReportURL = ""
	s.touch()
}

// SelectAnswer records the user's choice for question index (zero based). An
// empty letter clears the selection.
func (s *Session) SelectAnswer(index int, letter string) error {
	if !s.HasQuiz() {
		return ErrNoQuiz
	}
	if index < 0 || index >= len(s.Items) {
		return ErrQuestionIndex
	}
	letter = strings.TrimSpace(letter)
	if letter != "" && !quiz.IsChoice(letter) {
		return ErrInvalidChoice
	}
	if len(s.Answers) != len(s.Items) {
		answers := make([]string, len(s.Items))
		copy(answers, s.Answers)
		s.Answers = answers
	}
	s.Answers[index] = letter
	s.touch()
	return nil
}

// Submit grades the current answers and keeps the result on the session. Any
// previous report is discarded.
func (s *Session) Submit() (quiz.Result, error) {
	if !s.HasQuiz() {
		return quiz.Result{}, ErrNoQuiz
	}
	res := quiz.Grade(quiz.Responses(s.Items, s.Answers))
	s.Result = &res
	s.Report = nil
	s.ReportURL = ""
	s.touch()
	return res, nil
}

// SetReport stores the rendered report, replacing the previous one.
func (s *Session) SetReport(pdf []byte, url string) {
	s.Report = pdf
	s.ReportURL = url
	s.touch()
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	if s.Items != nil {
		c.Items = append([]quiz.Item(nil), s.Items...)
	}
	if s.Answers != nil {
		c.Answers = append([]string(nil), s.Answers...)
	}
	if s.Result != nil {
		r := *s.Result
		r.Outcomes = append([]quiz.Outcome(nil), s.Result.Outcomes...)
		c.Result = &r
	}
	if s.Report != nil {
		c.Report = append([]byte(nil), s.Report...)
	}
	return &c
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
