package gemini

import "context"

//go:generate mockgen -source=generator.go -destination=mock_gemini/generator.go -package=mock_gemini

// Generator produces a text completion for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
