package templates

import (
	"fmt"
	"strings"

	"github.com/dpshade/pocket-meta/internal/models"
)

// Validate returns every problem found in input. An empty slice means the
// template can be saved. The YAML check is a line heuristic, not a parser.
func Validate(input models.TemplateInput) []string {
	var problems []string

	if strings.TrimSpace(input.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(input.YAMLSkeleton) == "" {
		problems = append(problems, "yaml skeleton is required")
	}
	if strings.TrimSpace(input.Instructions) == "" {
		problems = append(problems, "generation instructions are required")
	}

	for i, line := range strings.Split(input.YAMLSkeleton, "\n") {
		if looksMalformed(line) {
			problems = append(problems, fmt.Sprintf("yaml skeleton line %d looks malformed: %q", i+1, strings.TrimSpace(line)))
		}
	}

	return problems
}

func looksMalformed(line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return false
	case strings.Contains(trimmed, ":"):
		return false
	case strings.HasPrefix(line, " "), strings.HasPrefix(line, "\t"):
		return false
	case strings.HasPrefix(trimmed, "-"), strings.HasPrefix(trimmed, "#"):
		return false
	}
	return true
}
