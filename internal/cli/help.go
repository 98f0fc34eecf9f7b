package cli

import (
	"fmt"
	"strings"
)

var commandHelp = map[string]string{
	"generate": `pocket-meta generate <file> [options]

Generate YAML front matter for a note and insert it after confirmation.

OPTIONS:
    -t, --template <id>   Use this template instead of suggesting one
    --pick                Always ask which template to use
    --preview             Print the generated metadata without writing
    --copy                Preview and copy the front matter block to the clipboard
    --replace             Replace existing front matter instead of merging
    -y, --yes             Insert without the preview dialog
    -f, --format json     Print the outcome as JSON`,

	"batch": `pocket-meta batch <template> <files...> [options]

Generate and insert metadata for many notes with one template.

OPTIONS:
    -c, --concurrency <n> Documents processed at once
    --replace             Replace existing front matter instead of merging
    --skip-unchanged      Skip notes whose body has not changed since the last run
    -f, --format json     Print the result as JSON`,

	"insert": `pocket-meta insert <file> <yaml-file> [--replace] [--strict]

Insert metadata from a YAML file into a note.`,

	"template": `pocket-meta template <subcommand> [args]

SUBCOMMANDS:
    show <id> [--format json|markdown]
    create --name <n> --skeleton <yaml> --instructions <text> [--description <d>]
    create --file <template.md>
    edit <id> [--name ...] [--description ...] [--skeleton ...] [--instructions ...]
    delete <id>
    duplicate <id> [--name <n>]
    export [--output file.json]
    import <file.json>

Field values starting with @ are read from a file, e.g. --skeleton @fields.yaml`,
}

// Usage returns the command summary
func Usage() string {
	return strings.TrimLeft(usage, "\n")
}

func (c *CLI) printUsage() error {
	fmt.Fprint(c.out, Usage())
	return nil
}

func (c *CLI) printHelp(args []string) error {
	if len(args) > 0 {
		if text, ok := commandHelp[args[0]]; ok {
			fmt.Fprintln(c.out, text)
			return nil
		}
	}
	return c.printUsage()
}

const usage = `
COMMANDS:
    generate <file>               Generate metadata for a note
    batch <template> <files...>   Generate metadata for many notes
    insert <file> <yaml-file>     Insert metadata from a file
    suggest <file>                Rank templates for a note
    detect <file>                 Detect the language of a note
    estimate <file>               Estimate tokens and cost for a note
    templates                     List templates (--search, --custom, --format json|table|ids)
    template <subcommand>         Manage a template (show, create, edit, delete, duplicate, export, import)
    usage [reset]                 Show or reset usage statistics
    test-connection               Check the API configuration
    serve [--host h] [--port p]   Start the HTTP API server
    help [command]                Show help for a command
`
