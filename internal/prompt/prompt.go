// Package prompt turns a generation request into the system and user
// messages sent to the completion endpoint. Every function is pure: the
// date is passed in and the language is detected from the request body.
package prompt

import (
	"strings"
	"time"

	"github.com/dpshade/pocket-meta/internal/langdetect"
	"github.com/dpshade/pocket-meta/internal/models"
)

// DateLayout is the ISO date format used in prompts and metadata
const DateLayout = "2006-01-02"

var rules = []string{
	"The title must be lowercase with words joined by hyphens.",
	"Every tag must be lowercase with words joined by hyphens, unless the language instruction above allows otherwise.",
	"Fill every field of the template. Leave a field empty rather than inventing facts.",
	"Output YAML only. Do not wrap it in a code block, do not add --- separators, and do not add any explanation.",
}

// Messages is a fully built prompt
type Messages struct {
	System   string
	User     string
	Language langdetect.Language
}

// Build detects the request language and produces both messages
func Build(req models.GenerationRequest, today time.Time) Messages {
	lang := langdetect.Detect(req.DocumentBody)
	return Messages{
		System:   systemMessage(req, today, LocaleFor(lang)),
		User:     userMessage(req, LocaleFor(lang)),
		Language: lang,
	}
}

// BuildSystemMessage returns the system instruction for req
func BuildSystemMessage(req models.GenerationRequest, today time.Time) string {
	return systemMessage(req, today, LocaleFor(langdetect.Detect(req.DocumentBody)))
}

// BuildUserMessage returns the user message carrying the document itself
func BuildUserMessage(req models.GenerationRequest) string {
	return userMessage(req, LocaleFor(langdetect.Detect(req.DocumentBody)))
}

func systemMessage(req models.GenerationRequest, today time.Time, loc Locale) string {
	var b strings.Builder

	b.WriteString(loc.SystemRole)
	b.WriteString("\n\n")
	b.WriteString(loc.LanguageInstruction)
	b.WriteString("\n\n")
	b.WriteString("Today's date: ")
	b.WriteString(today.Format(DateLayout))
	b.WriteString("\n\n")

	b.WriteString("Template:\n```yaml\n")
	b.WriteString(strings.TrimSpace(req.Template.YAMLSkeleton))
	b.WriteString("\n```\n\n")

	if instructions := strings.TrimSpace(req.Template.Instructions); instructions != "" {
		b.WriteString("Instructions:\n")
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}

	b.WriteString("Rules:\n")
	for _, rule := range rules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func userMessage(req models.GenerationRequest, loc Locale) string {
	var b strings.Builder

	b.WriteString(loc.FileNameLabel)
	b.WriteString(" ")
	b.WriteString(req.FileName)
	b.WriteString("\n\n")
	b.WriteString(loc.ContentLabel)
	b.WriteString("\n")
	b.WriteString(req.DocumentBody)

	if existing := strings.TrimSpace(req.ExistingMetadata); existing != "" {
		b.WriteString("\n\n")
		b.WriteString(loc.ExistingLabel)
		b.WriteString("\n```yaml\n")
		b.WriteString(existing)
		b.WriteString("\n```\n\n")
		b.WriteString(loc.UpdateInstruction)
	}

	return b.String()
}
