package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dpshade/pocket-meta/internal/cli"
	"github.com/dpshade/pocket-meta/internal/config"
	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/service"
	"github.com/dpshade/pocket-meta/internal/storage"
)

var version = "0.1.0"

func printHelp() {
	fmt.Printf(`pocket-meta - AI-generated YAML front matter for your notes

USAGE:
    pocket-meta [OPTIONS] <COMMAND> [ARGS]

OPTIONS:
    --help          Show this help information
    --version       Print version information
    --init          Create the library directory and a default config.yaml
    --dir <path>    Library directory (default: ~/.pocket-meta)
    --verbose       Debug logging and full error details

`)
	fmt.Print(cli.Usage())
	fmt.Printf(`
EXAMPLES:
    pocket-meta --init                                  # Create config and library
    pocket-meta generate notes/standup.md               # Suggest a template, preview, insert
    pocket-meta generate idea.md --template general-note --preview
    pocket-meta batch book-review reading/*.md -c 4     # Four notes at a time
    pocket-meta insert note.md meta.yaml --replace      # Insert hand-written metadata
    pocket-meta templates --format table                # List templates
    pocket-meta template create --name Recipe --skeleton @recipe.yaml --instructions @recipe.md
    pocket-meta serve --port 8787                       # Start the HTTP API
    pocket-meta help generate                           # Detailed command help

CONFIGURATION:
    <dir>/config.yaml, <dir>/.env and POCKET_META_* environment variables
    API key: POCKET_META_API_API_KEY or OPENAI_API_KEY

STORAGE:
    Default directory: ~/.pocket-meta
    Override with: POCKET_META_DIR=<path>
`)
}

func main() {
	var showVersion bool
	var initLib bool
	var showHelp bool
	var verbose bool
	var dir string

	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.BoolVar(&initLib, "init", false, "Create the library directory and a default config")
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&verbose, "verbose", false, "Debug logging and full error details")
	flag.StringVar(&dir, "dir", "", "Library directory")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("pocket-meta version %s\n", version)
		os.Exit(0)
	}

	errorHandler := errors.NewCLIErrorHandler(verbose)

	if initLib {
		if err := initLibrary(dir); err != nil {
			fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		return
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
		os.Exit(1)
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger.Init(os.Stderr, level)

	ctx := context.Background()
	svc, err := service.NewFromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
		os.Exit(1)
	}

	cliHandler := cli.NewCLI(svc, cfg)
	err = cliHandler.ExecuteCommand(ctx, args)
	if cerr := svc.Close(); cerr != nil {
		logger.Warn("failed to close service", "error", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
		os.Exit(1)
	}
}

func initLibrary(dir string) error {
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return err
		}
	}
	store, err := storage.NewStorage(dir)
	if err != nil {
		return err
	}
	if err := store.InitLibrary(); err != nil {
		return fmt.Errorf("failed to initialize library: %w", err)
	}

	path, written, err := config.WriteDefault(dir)
	if err != nil {
		return err
	}
	if written {
		fmt.Printf("Wrote default configuration to %s\n", path)
	} else {
		fmt.Printf("Configuration already exists at %s\n", path)
	}
	fmt.Printf("Initialized pocket-meta library in %s\n", store.GetBaseDir())
	return nil
}
