package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/dpshade/pocket-meta/internal/api"
	"github.com/dpshade/pocket-meta/internal/clipboard"
	"github.com/dpshade/pocket-meta/internal/config"
	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/frontmatter"
	"github.com/dpshade/pocket-meta/internal/langdetect"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/service"
	"github.com/dpshade/pocket-meta/internal/storage"
	"github.com/dpshade/pocket-meta/internal/ui"
)

// CLI provides headless command-line interface functionality
type CLI struct {
	service     *service.Service
	config      *config.Config
	out         io.Writer
	interactive bool
}

// NewCLI creates a new CLI instance. Interactive dialogs are used when
// stdout is a terminal.
func NewCLI(svc *service.Service, cfg *config.Config) *CLI {
	return &CLI{
		service:     svc,
		config:      cfg,
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// SetOutput redirects command output and disables interactive dialogs
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
	c.interactive = false
}

// ExecuteCommand processes a CLI command and returns the result
func (c *CLI) ExecuteCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.printUsage()
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "generate", "gen":
		return c.generate(ctx, commandArgs)
	case "batch":
		return c.batch(ctx, commandArgs)
	case "insert":
		return c.insert(ctx, commandArgs)
	case "suggest":
		return c.suggest(ctx, commandArgs)
	case "detect":
		return c.detect(ctx, commandArgs)
	case "estimate":
		return c.estimate(ctx, commandArgs)
	case "templates":
		return c.handleTemplates(commandArgs)
	case "template":
		return c.handleTemplate(commandArgs)
	case "usage":
		return c.handleUsage(ctx, commandArgs)
	case "test-connection":
		return c.testConnection(ctx)
	case "serve":
		return c.serve(ctx, commandArgs)
	case "help":
		return c.printHelp(commandArgs)
	default:
		return errors.CommandNotFoundError(command)
	}
}

// options holds parsed command flags. Flags listed in valued take the next
// argument; every other --flag is boolean.
type options struct {
	positional []string
	values     map[string]string
	bools      map[string]bool
}

func parseOptions(args []string, valued ...string) options {
	takesValue := make(map[string]bool, len(valued))
	for _, v := range valued {
		takesValue[v] = true
	}

	opts := options{values: map[string]string{}, bools: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			opts.positional = append(opts.positional, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			opts.values[k] = v
			continue
		}
		if takesValue[name] && i+1 < len(args) {
			opts.values[name] = args[i+1]
			i++
			continue
		}
		opts.bools[name] = true
	}
	return opts
}

func (o options) value(names ...string) string {
	for _, n := range names {
		if v, ok := o.values[n]; ok {
			return v
		}
	}
	return ""
}

func (o options) flag(names ...string) bool {
	for _, n := range names {
		if o.bools[n] {
			return true
		}
	}
	return false
}

// generate runs the single-document flow: choose a template, preview, then
// insert on confirmation
func (c *CLI) generate(ctx context.Context, args []string) error {
	opts := parseOptions(args, "template", "t", "format", "f")
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("generate", "exactly one file required")
	}
	doc := storage.NewFileDocument(opts.positional[0])
	replace := c.config.Generation.ReplaceExisting || opts.flag("replace")
	previewOnly := opts.flag("preview", "dry-run", "copy")
	format := opts.value("format", "f")

	var outcome service.GenerationOutcome
	var err error
	if id := opts.value("template", "t"); id != "" {
		tmpl, rerr := c.service.ResolveTemplate(id)
		if rerr != nil {
			return rerr
		}
		outcome, err = c.service.GenerateWithTemplate(ctx, doc, tmpl, "", true)
	} else {
		autoSelect := c.config.Generation.AutoSelectTemplate && !opts.flag("pick")
		outcome, err = c.service.GenerateForDocument(ctx, doc, autoSelect, true)
	}
	if err != nil {
		return err
	}

	if outcome.State == service.StateSelectingTemplate {
		tmpl, ok, perr := c.chooseTemplate(doc.Name(), outcome.Suggestions)
		if perr != nil {
			return perr
		}
		if !ok {
			fmt.Fprintln(c.out, "Cancelled")
			return nil
		}
		if outcome, err = c.service.GenerateWithTemplate(ctx, doc, tmpl, "", true); err != nil {
			return err
		}
	}

	if format == "json" && (previewOnly || !c.interactive) {
		if !previewOnly {
			if err := c.service.InsertMetadata(ctx, doc, outcome.Metadata, replace); err != nil {
				return err
			}
			outcome.Inserted = true
			outcome.State = service.StateDone
		}
		return c.writeJSON(outcome)
	}

	for {
		if previewOnly {
			fmt.Fprint(c.out, ui.RenderMetadata(doc.Name(), outcome.Metadata, 80))
			if opts.flag("copy") {
				msg, err := clipboard.CopyFrontMatter(outcome.Metadata)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, msg)
			}
			return nil
		}
		if !c.interactive || opts.flag("yes", "y") {
			return c.finishInsert(ctx, doc, outcome.Metadata, replace)
		}

		name := ""
		if outcome.Template != nil {
			name = outcome.Template.Name
		}
		res, err := ui.RunPreview(doc.Name(), name, outcome.Metadata)
		if err != nil {
			return err
		}
		switch res.Decision {
		case ui.DecisionAccept:
			return c.finishInsert(ctx, doc, res.Metadata, replace)
		case ui.DecisionRegenerate:
			if outcome, err = c.service.Regenerate(ctx, doc, *outcome.Template, true); err != nil {
				return err
			}
		default:
			fmt.Fprintln(c.out, "Cancelled, document unchanged")
			return nil
		}
	}
}

func (c *CLI) finishInsert(ctx context.Context, doc *storage.FileDocument, metadata string, replace bool) error {
	if err := c.service.InsertMetadata(ctx, doc, metadata, replace); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Metadata written to %s\n", doc.Path())
	return nil
}

// chooseTemplate asks the user when possible, otherwise takes the best
// suggestion or the configured default
func (c *CLI) chooseTemplate(document string, suggestions []models.TemplateSuggestion) (models.Template, bool, error) {
	if c.interactive {
		return ui.RunTemplatePicker(document, suggestions, c.service.ListTemplates())
	}
	if len(suggestions) > 0 {
		return suggestions[0].Template, true, nil
	}
	tmpl, err := c.service.GetTemplate(c.config.Generation.DefaultTemplate)
	if err != nil {
		return models.Template{}, false, err
	}
	return tmpl, true, nil
}

func (c *CLI) batch(ctx context.Context, args []string) error {
	opts := parseOptions(args, "concurrency", "c", "format", "f")
	if len(opts.positional) < 2 {
		return errors.InvalidCommandError("batch", "a template and at least one file required")
	}
	tmpl, err := c.service.ResolveTemplate(opts.positional[0])
	if err != nil {
		return err
	}

	maxConcurrent := c.config.Batch.MaxConcurrent
	if v := opts.value("concurrency", "c"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errors.ValidationError(fmt.Sprintf("invalid concurrency: %s", v))
		}
		maxConcurrent = n
	}

	files := storage.FileDocuments(opts.positional[1:])
	docs := make([]service.Document, len(files))
	for i, f := range files {
		docs[i] = f
	}

	format := opts.value("format", "f")
	result, err := c.service.BatchGenerate(ctx, docs, tmpl.ID, service.BatchOptions{
		ReplaceExisting: c.config.Generation.ReplaceExisting || opts.flag("replace"),
		MaxConcurrent:   maxConcurrent,
		SkipUnchanged:   c.config.Batch.SkipUnchanged || opts.flag("skip-unchanged"),
		OnProgress: func(current, total int, label string) {
			if format != "json" {
				fmt.Fprintf(c.out, "[%d/%d] %s\n", current, total, label)
			}
		},
	})
	if err != nil {
		return err
	}

	if format == "json" {
		return c.writeJSON(result)
	}
	fmt.Fprintf(c.out, "\n%s\n", ui.CreateStatus(fmt.Sprintf("%d succeeded, %d failed, %d skipped", result.Success, result.Failed, result.Skipped), batchStatus(result)))
	for _, e := range result.Errors {
		fmt.Fprintf(c.out, "  %s: %s\n", e.Document, e.Message)
	}
	return nil
}

func batchStatus(r models.BatchResult) string {
	switch {
	case r.Failed == 0:
		return "success"
	case r.Success == 0:
		return "error"
	default:
		return "warning"
	}
}

func (c *CLI) insert(ctx context.Context, args []string) error {
	opts := parseOptions(args)
	if len(opts.positional) != 2 {
		return errors.InvalidCommandError("insert", "a document and a YAML file required")
	}
	yamlText, err := os.ReadFile(opts.positional[1])
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}
	if opts.flag("strict") {
		if err := frontmatter.ValidateStrict(string(yamlText)); err != nil {
			return err
		}
	}
	doc := storage.NewFileDocument(opts.positional[0])
	replace := c.config.Generation.ReplaceExisting || opts.flag("replace")
	return c.finishInsert(ctx, doc, string(yamlText), replace)
}

// readBody returns the body of a file without its front matter
func readBody(ctx context.Context, path string) (string, error) {
	text, err := storage.NewFileDocument(path).Read(ctx)
	if err != nil {
		return "", err
	}
	return frontmatter.ExtractBody(text), nil
}

func (c *CLI) suggest(ctx context.Context, args []string) error {
	opts := parseOptions(args, "format", "f")
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("suggest", "exactly one file required")
	}
	path := opts.positional[0]
	body, err := readBody(ctx, path)
	if err != nil {
		return err
	}

	suggestions := c.service.SuggestTemplates(body, storage.NewFileDocument(path).Name())
	if opts.value("format", "f") == "json" {
		return c.writeJSON(suggestions)
	}
	for _, s := range suggestions {
		fmt.Fprintf(c.out, "%-16s %3.0f%%  %s\n", s.Template.ID, s.Confidence*100, s.Reason)
	}
	return nil
}

func (c *CLI) detect(ctx context.Context, args []string) error {
	opts := parseOptions(args)
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("detect", "exactly one file required")
	}
	body, err := readBody(ctx, opts.positional[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, langdetect.Detect(body))
	if opts.flag("verbose", "v") {
		scores := langdetect.Scores(body)
		langs := make([]string, 0, len(scores))
		for lang := range scores {
			langs = append(langs, string(lang))
		}
		sort.Strings(langs)
		for _, lang := range langs {
			fmt.Fprintf(c.out, "  %s: %d\n", lang, scores[langdetect.Language(lang)])
		}
	}
	return nil
}

func (c *CLI) estimate(ctx context.Context, args []string) error {
	opts := parseOptions(args, "format", "f")
	if len(opts.positional) != 1 {
		return errors.InvalidCommandError("estimate", "exactly one file required")
	}
	body, err := readBody(ctx, opts.positional[0])
	if err != nil {
		return err
	}

	est := c.service.EstimateCost(body)
	if opts.value("format", "f") == "json" {
		return c.writeJSON(est)
	}
	fmt.Fprintf(c.out, "Tokens: %d\nEstimated cost: $%.6f (%s)\n", est.Tokens, est.EstimatedCost, est.PricingTier)
	return nil
}

func (c *CLI) handleUsage(ctx context.Context, args []string) error {
	opts := parseOptions(args, "format", "f")
	if len(opts.positional) > 0 && opts.positional[0] == "reset" {
		if err := c.service.ResetUsageStats(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Usage statistics reset")
		return nil
	}

	stats := c.service.UsageStats()
	if opts.value("format", "f") == "json" {
		return c.writeJSON(stats)
	}
	fmt.Fprintf(c.out, "Requests:        %d (%d succeeded, %d failed)\n", stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests)
	fmt.Fprintf(c.out, "Tokens used:     %d\n", stats.TotalTokensUsed)
	fmt.Fprintf(c.out, "Average time:    %.0f ms\n", stats.AverageProcessingTimeMs)
	if !stats.LastUsedAt.IsZero() {
		fmt.Fprintf(c.out, "Last used:       %s\n", stats.LastUsedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(c.out, "Counting since:  %s\n", stats.LastResetAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (c *CLI) testConnection(ctx context.Context) error {
	ok, err := c.service.TestConnection(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(c.out, ui.CreateStatus("Connected, but the model did not reply with OK", "warning"))
		return nil
	}
	fmt.Fprintln(c.out, ui.CreateStatus("Connection OK", "success"))
	return nil
}

func (c *CLI) serve(ctx context.Context, args []string) error {
	opts := parseOptions(args, "port", "p", "host")
	cfg := c.config.Server
	if v := opts.value("port", "p"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.ValidationError(fmt.Sprintf("invalid port: %s", v))
		}
		cfg.Port = port
	}
	if v := opts.value("host"); v != "" {
		cfg.Host = v
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.NewAPIServer(c.service, cfg, c.config.Metrics.Enabled).Run(ctx)
}

func (c *CLI) writeJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
