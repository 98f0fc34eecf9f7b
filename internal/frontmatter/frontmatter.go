// Package frontmatter reads and rewrites the YAML block at the top of a
// markdown document. A block starts with a line that is exactly "---" on the
// first line of the document and ends at the next such line.
//
// Merging is line based so that hand-edited or slightly invalid metadata is
// carried over untouched. ValidateStrict offers an optional yaml.v3 check.
package frontmatter

import (
	"fmt"
	"strings"

	"github.com/dpshade/pocket-meta/internal/errors"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Split separates the front matter from the body. ok is false when the
// document has no block or the block is never closed; body is then the
// whole document.
func Split(doc string) (frontMatter, body string, ok bool) {
	lines := strings.SplitAfter(doc, "\n")
	if len(lines) == 0 || !isDelimiter(lines[0]) {
		return "", doc, false
	}

	for i := 1; i < len(lines); i++ {
		if isDelimiter(lines[i]) {
			inner := strings.Join(lines[1:i], "")
			inner = strings.TrimSuffix(strings.TrimSuffix(inner, "\n"), "\r")
			return inner, strings.Join(lines[i+1:], ""), true
		}
	}
	return "", doc, false
}

// ExtractBody returns the document without its front matter, with leading
// blank lines removed
func ExtractBody(doc string) string {
	_, body, ok := Split(doc)
	if !ok {
		return doc
	}
	return strings.TrimLeft(body, "\r\n")
}

// Insert writes newYAML into doc. Without a well-formed block the metadata is
// prepended and the document is kept verbatim below it. With replaceExisting
// the old block is discarded; otherwise the blocks are merged by top-level key
// and new values win.
func Insert(doc, newYAML string, replaceExisting bool) string {
	newYAML = strings.Trim(newYAML, "\n")

	old, body, ok := Split(doc)
	if !ok {
		return block(newYAML) + "\n" + doc
	}
	if replaceExisting {
		return block(newYAML) + body
	}
	return block(Merge(old, newYAML)) + body
}

// Merge combines two front matter blocks. Lines of newYAML come first, then
// every top-level key of old that newYAML does not define, together with the
// continuation lines that follow it.
func Merge(old, newYAML string) string {
	newLines := strings.Split(strings.Trim(newYAML, "\n"), "\n")

	defined := make(map[string]bool)
	for _, line := range newLines {
		if key, ok := topLevelKey(line); ok {
			defined[key] = true
		}
	}

	merged := append([]string(nil), newLines...)
	keep := true
	for _, line := range strings.Split(old, "\n") {
		if key, ok := topLevelKey(line); ok {
			keep = !defined[key]
		}
		if keep {
			merged = append(merged, line)
		}
	}

	return strings.TrimRight(strings.Join(merged, "\n"), "\n")
}

// Keys lists the top-level keys of a front matter block in order
func Keys(frontMatter string) []string {
	var keys []string
	for _, line := range strings.Split(frontMatter, "\n") {
		if key, ok := topLevelKey(line); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// ValidateStrict parses text with a real YAML parser and requires a mapping
// at the top level. Callers treat a failure as a warning only.
func ValidateStrict(text string) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeParsingError, "metadata is not valid YAML").WithDetails(err.Error())
	}
	if doc == nil && strings.TrimSpace(text) != "" {
		return errors.ParsingError("metadata is not a YAML mapping")
	}
	return nil
}

func block(yamlText string) string {
	return fmt.Sprintf("%s\n%s\n%s\n", delimiter, yamlText, delimiter)
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, "\r\n") == delimiter
}

// topLevelKey returns the text before the first colon of an unindented
// key line
func topLevelKey(line string) (string, bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '-' || line[0] == '#' {
		return "", false
	}
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", false
	}
	key := strings.TrimSpace(line[:idx])
	return key, key != ""
}
