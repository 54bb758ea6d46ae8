// Package quiz turns free-text model output into quiz items and grades answers
// against them.
package quiz

import "strings"

// Bounds on the number of questions a user may request in one quiz.
const (
	MinQuestions = 1
	MaxQuestions = 10
)

// Choices lists the option letters a question is expected to offer.
var Choices = []string{"A", "B", "C", "D"}

// Item is one parsed question block paired with the letter the model marked as
// correct. Correct is taken verbatim from the model and is not guaranteed to be
// one of Choices.
type Item struct {
	Question string `json:"question"`
	Correct  string `json:"correct"`
}

// IsChoice reports whether letter names one of Choices, ignoring case.
func IsChoice(letter string) bool {
	for _, c := range Choices {
		if strings.EqualFold(letter, c) {
			return true
		}
	}
	return false
}
