package translation

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs system instructions for translation calls.
type PromptBuilder struct{}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// LineSystemPrompt is the instruction for translating one lyric line into one language.
func (pb *PromptBuilder) LineSystemPrompt(lang string) string {
	return fmt.Sprintf("Translate the following text to %s.", lang)
}

// DocumentSystemPrompt asks for the whole document with each original line
// kept and followed by its translation. The backend decides the exact layout.
func (pb *PromptBuilder) DocumentSystemPrompt(langs []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate the following lyrics to %s.", joinLanguages(langs)))
	sb.WriteString(" Keep every original line, including its timestamp, and put the translated line directly below it.")
	sb.WriteString(" Lines without timestamps such as tags or blank lines must be kept as they are.")
	return sb.String()
}

func joinLanguages(langs []string) string {
	switch len(langs) {
	case 0:
		return ""
	case 1:
		return langs[0]
	default:
		return strings.Join(langs[:len(langs)-1], ", ") + " and " + langs[len(langs)-1]
	}
}
