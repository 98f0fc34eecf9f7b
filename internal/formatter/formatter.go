// Package formatter cleans raw model output into front matter text.
//
// The work is a fixed sequence of textual steps rather than a YAML parse so
// that near-miss output is repaired instead of rejected:
//
//	stripCodeFence -> stripDelimiters -> rejectEmpty -> substituteDate -> normalizeTags -> normalizeTitle
//
// Applying Format to its own output returns the same text.
package formatter

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/langdetect"
)

// DatePlaceholder is replaced by the current ISO date
const DatePlaceholder = "{{date}}"

const dateLayout = "2006-01-02"

var (
	tagsLine     = regexp.MustCompile(`^(\s*)tags:\s*(.*)$`)
	titleLine    = regexp.MustCompile(`^(\s*)title:\s*(.*)$`)
	listItemLine = regexp.MustCompile(`^(\s*)-\s*(.*)$`)
	keyLine      = regexp.MustCompile(`^(\s*)([^\s:#-][^:]*):\s*(.*)$`)
	hyphenRun    = regexp.MustCompile(`-{2,}`)
)

// step is one named stage of the pipeline
type step struct {
	name string
	run  func(f *Formatter, text, templateYAML string) (string, error)
}

var pipeline = []step{
	{"stripCodeFence", func(_ *Formatter, text, _ string) (string, error) { return stripCodeFence(text), nil }},
	{"stripDelimiters", func(_ *Formatter, text, _ string) (string, error) { return stripDelimiters(text), nil }},
	{"rejectEmpty", func(_ *Formatter, text, _ string) (string, error) { return text, rejectEmpty(text) }},
	{"substituteDate", func(f *Formatter, text, tmpl string) (string, error) {
		return substituteDate(text, tmpl, f.now().Format(dateLayout)), nil
	}},
	{"normalizeTags", func(_ *Formatter, text, _ string) (string, error) { return normalizeTags(text), nil }},
	{"normalizeTitle", func(_ *Formatter, text, _ string) (string, error) { return normalizeTitle(text), nil }},
}

// Formatter runs the pipeline with an injectable clock
type Formatter struct {
	now func() time.Time
}

// New creates a formatter using the wall clock
func New() *Formatter {
	return &Formatter{now: time.Now}
}

// NewWithClock creates a formatter that reads dates from now
func NewWithClock(now func() time.Time) *Formatter {
	return &Formatter{now: now}
}

// Format runs every step in order and returns the cleaned YAML. It fails
// with PARSING_ERROR when nothing usable remains.
func (f *Formatter) Format(raw, templateYAML string) (string, error) {
	text := raw
	for _, s := range pipeline {
		var err error
		text, err = s.run(f, text, templateYAML)
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(text), nil
}

// Format formats raw with the wall clock
func Format(raw, templateYAML string) (string, error) {
	return New().Format(raw, templateYAML)
}

// StepNames lists the pipeline in execution order
func StepNames() []string {
	names := make([]string, len(pipeline))
	for i, s := range pipeline {
		names[i] = s.name
	}
	return names
}

func stripCodeFence(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// stripDelimiters drops a --- line echoed at either end of the block
func stripDelimiters(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "---" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

func rejectEmpty(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return nil
		}
	}
	return errors.ParsingError("model returned no metadata")
}

// substituteDate replaces placeholders and fills keys the template dates with
// {{date}} when the model left them empty
func substituteDate(text, templateYAML, today string) string {
	dated := map[string]bool{}
	for _, line := range strings.Split(templateYAML, "\n") {
		if m := keyLine.FindStringSubmatch(line); m != nil && m[1] == "" && strings.TrimSpace(m[3]) == DatePlaceholder {
			dated[strings.TrimSpace(m[2])] = true
		}
	}

	lines := strings.Split(strings.ReplaceAll(text, DatePlaceholder, today), "\n")
	for i, line := range lines {
		m := keyLine.FindStringSubmatch(line)
		if m == nil || m[1] != "" || !dated[strings.TrimSpace(m[2])] {
			continue
		}
		if strings.TrimSpace(m[3]) == "" && !nextIsListItem(lines, i) {
			lines[i] = strings.TrimSpace(m[2]) + ": " + today
		}
	}
	return strings.Join(lines, "\n")
}

func nextIsListItem(lines []string, i int) bool {
	return i+1 < len(lines) && listItemLine.MatchString(lines[i+1])
}

func normalizeTags(text string) string {
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		m := tagsLine.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		indent, rest := m[1], strings.TrimSpace(m[2])

		if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
			lines[i] = indent + "tags: [" + strings.Join(formatTagList(rest[1:len(rest)-1]), ", ") + "]"
			continue
		}
		if rest != "" {
			continue
		}

		// block list: rewrite each following list item
		for j := i + 1; j < len(lines); j++ {
			item := listItemLine.FindStringSubmatch(lines[j])
			if item == nil || len(item[1]) < len(indent) {
				break
			}
			if tag := FormatSingleTag(item[2]); tag != "" {
				lines[j] = item[1] + "- " + tag
			}
			i = j
		}
	}
	return strings.Join(lines, "\n")
}

func formatTagList(inner string) []string {
	tags := []string{}
	for _, raw := range strings.Split(inner, ",") {
		if tag := FormatSingleTag(raw); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func normalizeTitle(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := titleLine.FindStringSubmatch(line)
		if m == nil || m[1] != "" {
			continue
		}
		if title := FormatSingleTag(m[2]); title != "" {
			lines[i] = "title: " + title
		}
	}
	return strings.Join(lines, "\n")
}

// FormatSingleTag normalizes one tag or title value. Values containing CJK
// keep their case and lose only whitespace and symbols; everything else
// becomes lowercase-hyphenated.
func FormatSingleTag(value string) string {
	value = unquote(strings.TrimSpace(value))
	if value == "" {
		return ""
	}

	if langdetect.ContainsCJK(value) {
		var b strings.Builder
		for _, r := range value {
			switch {
			case unicode.IsSpace(r), r == '_':
			case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	return strings.Trim(hyphenRun.ReplaceAllString(b.String(), "-"), "-")
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
