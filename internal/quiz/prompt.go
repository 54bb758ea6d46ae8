package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuestionCount is returned when a quiz is requested with a count outside
// [MinQuestions, MaxQuestions].
var ErrQuestionCount = fmt.Errorf("number of questions must be between %d and %d", MinQuestions, MaxQuestions)

// ErrEmptyQuestion is returned when asked to build a prompt for a blank question.
var ErrEmptyQuestion = errors.New("question must not be empty")

const (
	questionPrompt = "Use the following notes:\n%s\n\nQuestion: %s\nAnswer:"
	quizPrompt     = "Generate %d multiple-choice questions from the following notes:\n\n%s\n\n" +
		"Each question should have 4 options (A, B, C, D) and clearly mention the correct answer below as 'Answer: A/B/C/D'."
)

// QuestionPrompt asks the model to answer question using only the notes.
func QuestionPrompt(notes, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	return fmt.Sprintf(questionPrompt, notes, question), nil
}

// QuizPrompt asks the model for n four-option questions in the format Parse
// understands.
func QuizPrompt(notes string, n int) (string, error) {
	if n < MinQuestions || n > MaxQuestions {
		return "", ErrQuestionCount
	}
	return fmt.Sprintf(quizPrompt, n, notes), nil
}
