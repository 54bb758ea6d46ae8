package quiz

import (
	"fmt"
	"strings"
)

// Status is the grading outcome of a single question.
type Status string

const (
	StatusUnanswered Status = "unanswered"
	StatusCorrect    Status = "correct"
	StatusWrong      Status = "wrong"
)

// Response pairs the user's selection with the expected letter. An empty
// Selected means the question was left unanswered.
type Response struct {
	Selected string
	Correct  string
}

// Outcome is the graded form of one Response.
type Outcome struct {
	Number   int    `json:"number"`
	Selected string `json:"selected,omitempty"`
	Correct  string `json:"correct"`
	Status   Status `json:"status"`
}

// Message renders the outcome the way it is shown to the user.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusUnanswered:
		return fmt.Sprintf("Q%d) You didn't answer this question.", o.Number)
	case StatusCorrect:
		return fmt.Sprintf("Q%d) You chose %s — Correct", o.Number, o.Selected)
	default:
		return fmt.Sprintf("Q%d) You chose %s — Wrong (Correct: %s)", o.Number, o.Selected, o.Correct)
	}
}

// Result holds the per-question outcomes and the aggregate score. Total only
// counts answered questions.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
	Correct  int       `json:"correct"`
	Total    int       `json:"total"`
}

// Score renders the result as "correct/total".
func (r Result) Score() string {
	return fmt.Sprintf("%d/%d", r.Correct, r.Total)
}

// Summary is the line written at the end of the exported report.
func (r Result) Summary() string {
	return "Your Final Score: " + r.Score()
}

// Warnings returns the messages of every unanswered question, in order.
func (r Result) Warnings() []string {
	var warnings []string
	for _, o := range r.Outcomes {
		if o.Status == StatusUnanswered {
			warnings = append(warnings, o.Message())
		}
	}
	return warnings
}

// Grade scores responses in order. Unanswered responses are reported but left
// out of both the correct count and the total; letters compare case-insensitively.
func Grade(responses []Response) Result {
	res := Result{Outcomes: make([]Outcome, 0, len(responses))}

	for i, r := range responses {
		o := Outcome{Number: i + 1, Selected: r.Selected, Correct: r.Correct}
		switch {
		case r.Selected == "":
			o.Status = StatusUnanswered
		case strings.EqualFold(r.Selected, r.Correct):
			o.Status = StatusCorrect
			res.Correct++
			res.Total++
		default:
			o.Status = StatusWrong
			res.Total++
		}
		res.Outcomes = append(res.Outcomes, o)
	}

	return res
}

// Responses zips items with the user's answers. Missing answers count as
// unanswered.
func Responses(items []Item, answers []string) []Response {
	out := make([]Response, len(items))
	for i, item := range items {
		out[i].Correct = item.Correct
		if i < len(answers) {
			out[i].Selected = answers[i]
		}
	}
	return out
}
