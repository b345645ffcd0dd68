package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/gebo/internal/models"
)

var (
	questionPrefix = regexp.MustCompile(`(?i)^question(\s*\d+)?\s*[:.]\s*`)
	answerPrefix   = regexp.MustCompile(`(?i)^answer(\s*\d+)?\s*[:.]\s*`)
)

// ParseQnA parses model output into question-answer pairs. The expected
// shape is blocks separated by blank lines, each block a question line
// followed by one or more answer lines. Output that does not fit this
// shape is rejected so malformed quizzes never reach storage.
func ParseQnA(raw string) ([]models.QAPair, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var pairs []models.QAPair
	for _, block := range strings.Split(strings.TrimSpace(raw), "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		if len(lines) < 2 {
			return nil, fmt.Errorf("summarize: malformed qna block: %q", block)
		}

		question := questionPrefix.ReplaceAllString(lines[0], "")
		answerLines := make([]string, 0, len(lines)-1)
		for i, line := range lines[1:] {
			if i == 0 {
				line = answerPrefix.ReplaceAllString(line, "")
			}
			answerLines = append(answerLines, line)
		}
		answer := strings.Join(answerLines, " ")

		if question == "" || answer == "" {
			return nil, fmt.Errorf("summarize: empty question or answer in block: %q", block)
		}
		pairs = append(pairs, models.QAPair{Question: question, Answer: answer})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("summarize: no qna pairs in model output")
	}
	return pairs, nil
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
