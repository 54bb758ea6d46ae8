package quiz

import "strings"

const answerMarker = "answer:"

// Parse splits model output into question blocks, each closed by a line that
// starts with "Answer:" (any case). The letter is whatever follows the first
// colon on that line, trimmed. Lines after the last marker are dropped and no
// check is made against the number of questions requested.
func Parse(text string) []Item {
	var items []Item
	var block strings.Builder

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.HasPrefix(strings.ToLower(line), answerMarker) {
			_, letter, _ := strings.Cut(line, ":")
			items = append(items, Item{
				Question: strings.TrimSpace(block.String()),
				Correct:  strings.TrimSpace(letter),
			})
			block.Reset()
			continue
		}
		block.WriteString(line)
		block.WriteString("\n")
	}

	return items
}
