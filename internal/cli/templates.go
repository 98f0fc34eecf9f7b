package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/storage"
	"github.com/dpshade/pocket-meta/internal/ui"
)

// handleTemplates lists or searches templates
func (c *CLI) handleTemplates(args []string) error {
	opts := parseOptions(args, "search", "s", "format", "f")

	list := c.service.ListTemplates()
	if q := opts.value("search", "s"); q != "" {
		list = c.service.SearchTemplates(q)
	}
	if opts.flag("custom") {
		custom := list[:0:0]
		for _, t := range list {
			if !t.IsBuiltIn {
				custom = append(custom, t)
			}
		}
		list = custom
	}

	return c.formatTemplates(list, opts.value("format", "f"))
}

func (c *CLI) formatTemplates(list []models.Template, format string) error {
	switch format {
	case "json":
		return c.writeJSON(list)
	case "ids":
		for _, t := range list {
			fmt.Fprintln(c.out, t.ID)
		}
	case "table":
		fmt.Fprintf(c.out, "%-24s %-24s %-8s %s\n", "ID", "NAME", "KIND", "DESCRIPTION")
		fmt.Fprintf(c.out, "%-24s %-24s %-8s %s\n", "--", "----", "----", "-----------")
		for _, t := range list {
			fmt.Fprintf(c.out, "%-24s %-24s %-8s %s\n",
				truncate(t.ID, 24), truncate(t.Name, 24), kind(t), truncate(t.Description, 50))
		}
	default:
		for _, t := range list {
			fmt.Fprintf(c.out, "%s - %s\n", t.ID, t.Name)
			if t.Description != "" {
				fmt.Fprintf(c.out, "  %s\n", t.Description)
			}
		}
	}
	return nil
}

func kind(t models.Template) string {
	if t.IsBuiltIn {
		return "built-in"
	}
	return "custom"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// handleTemplate manages a single template
func (c *CLI) handleTemplate(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("template", "subcommand required (show, create, edit, delete, duplicate, export, import)")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "show", "get":
		return c.showTemplate(subArgs)
	case "create", "add":
		return c.createTemplate(subArgs)
	case "edit", "update":
		return c.editTemplate(subArgs)
	case "delete", "rm":
		return c.deleteTemplate(subArgs)
	case "duplicate", "copy":
		return c.duplicateTemplate(subArgs)
	case "export":
		return c.exportTemplates(subArgs)
	case "import":
		return c.importTemplates(subArgs)
	default:
		return errors.InvalidCommandError("template "+subcommand, "unknown subcommand")
	}
}

func (c *CLI) showTemplate(args []string) error {
	opts := parseOptions(args, "format", "f")
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("template show", "template ID required")
	}
	tmpl, err := c.service.ResolveTemplate(opts.positional[0])
	if err != nil {
		return err
	}

	switch opts.value("format", "f") {
	case "json":
		return c.writeJSON(tmpl)
	case "markdown", "md":
		content, err := storage.SerializeTemplate(&tmpl)
		if err != nil {
			return err
		}
		_, err = c.out.Write(content)
		return err
	default:
		fmt.Fprint(c.out, ui.RenderTemplate(tmpl, 80))
		return nil
	}
}

// templateFields collects --name, --description, --skeleton and
// --instructions. Values starting with @ are read from a file.
var templateFields = []string{"name", "description", "skeleton", "instructions", "file"}

func fieldValue(opts options, name string) (string, bool, error) {
	v, ok := opts.values[name]
	if !ok {
		return "", false, nil
	}
	if path, isFile := strings.CutPrefix(v, "@"); isFile {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", false, fmt.Errorf("failed to read %s: %w", path, err)
		}
		v = string(content)
	}
	return v, true, nil
}

func (c *CLI) createTemplate(args []string) error {
	opts := parseOptions(args, templateFields...)

	var input models.TemplateInput
	if path := opts.value("file"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		parsed, err := storage.ParseTemplate(content)
		if err != nil {
			return err
		}
		input = models.TemplateInput{
			Name:         parsed.Name,
			Description:  parsed.Description,
			YAMLSkeleton: parsed.YAMLSkeleton,
			Instructions: parsed.Instructions,
		}
	}

	targets := map[string]*string{
		"name":         &input.Name,
		"description":  &input.Description,
		"skeleton":     &input.YAMLSkeleton,
		"instructions": &input.Instructions,
	}
	for name, dst := range targets {
		v, ok, err := fieldValue(opts, name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}

	tmpl, err := c.service.CreateTemplate(input)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created template: %s (%s)\n", tmpl.ID, tmpl.Name)
	return nil
}

func (c *CLI) editTemplate(args []string) error {
	opts := parseOptions(args, templateFields...)
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("template edit", "template ID required")
	}

	var patch models.TemplatePatch
	targets := map[string]**string{
		"name":         &patch.Name,
		"description":  &patch.Description,
		"skeleton":     &patch.YAMLSkeleton,
		"instructions": &patch.Instructions,
	}
	changed := false
	for name, dst := range targets {
		v, ok, err := fieldValue(opts, name)
		if err != nil {
			return err
		}
		if ok {
			*dst = &v
			changed = true
		}
	}
	if !changed {
		return errors.InvalidCommandError("template edit", "nothing to update; pass --name, --description, --skeleton or --instructions")
	}

	tmpl, err := c.service.UpdateTemplate(opts.positional[0], patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Updated template: %s\n", tmpl.ID)
	return nil
}

func (c *CLI) deleteTemplate(args []string) error {
	if len(args) != 1 {
		return errors.InvalidCommandError("template delete", "template ID required")
	}
	if err := c.service.DeleteTemplate(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted template: %s\n", args[0])
	return nil
}

func (c *CLI) duplicateTemplate(args []string) error {
	opts := parseOptions(args, "name")
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("template duplicate", "template ID required")
	}
	tmpl, err := c.service.DuplicateTemplate(opts.positional[0], opts.value("name"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created template: %s (%s)\n", tmpl.ID, tmpl.Name)
	return nil
}

// exportTemplates writes custom templates as JSON to stdout or --output
func (c *CLI) exportTemplates(args []string) error {
	opts := parseOptions(args, "output", "o")

	data, err := json.MarshalIndent(c.service.ExportTemplates(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal templates: %w", err)
	}

	if output := opts.value("output", "o"); output != "" {
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(c.out, "Exported to %s\n", output)
		return nil
	}

	fmt.Fprintln(c.out, string(data))
	return nil
}

func (c *CLI) importTemplates(args []string) error {
	if len(args) != 1 {
		return errors.InvalidCommandError("template import", "a JSON file required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var list []models.Template
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}

	n, err := c.service.ImportTemplates(list)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Imported %d templates\n", n)
	return nil
}
