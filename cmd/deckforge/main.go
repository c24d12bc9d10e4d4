package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/logging"
	"github.com/ramonehamilton/deckforge/internal/version"
)

// errInvalidDeck makes validate exit non-zero without an extra error line.
var errInvalidDeck = errors.New("deck is not valid")

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case errors.Is(err, errInvalidDeck):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	out        io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("deckforge", flag.ContinueOnError)
	global.SetOutput(out)
	configPath := global.String("config", "", "Path to config.toml (default ~/.deckforge/config.toml)")
	logLevel := global.String("log-level", "", "Override the configured log level")
	dbPath := global.String("db", "", "Override the card database path")
	global.Usage = func() { printUsage(out, global) }

	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		printUsage(out, global)
		return flag.ErrHelp
	}
	if global.Arg(0) == "version" {
		fmt.Fprintf(out, "deckforge %s\n", version.String())
		return nil
	}

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			return err
		}
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a := &app{cfg: cfg, configPath: path, logger: logger, out: out}

	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "import":
		return a.runImport(ctx, rest)
	case "combos":
		return a.runCombos(ctx, rest)
	case "build":
		return a.runBuild(ctx, rest)
	case "validate":
		return a.runValidate(ctx, rest)
	case "migrate":
		return a.runMigrate(rest)
	case "backup":
		return a.runBackup(ctx, rest)
	case "config":
		return a.runConfig(rest)
	case "llm-status":
		return a.runLLMStatus(ctx)
	case "help", "-h", "--help":
		printUsage(out, global)
		return nil
	default:
		printUsage(out, global)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: deckforge [global flags] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  import      Load a Scryfall JSON card dump into the card database")
	fmt.Fprintln(w, "  combos      Discover combos for named cards or a color identity")
	fmt.Fprintln(w, "  build       Assemble a deck around discovered combos and export it")
	fmt.Fprintln(w, "  validate    Check a deck list against a format's size and copy rules")
	fmt.Fprintln(w, "  migrate     Manage database migrations (up, down, version)")
	fmt.Fprintln(w, "  backup      Snapshot the card database, or list snapshots with -list")
	fmt.Fprintln(w, "  config      Show or initialize the configuration file (show, init)")
	fmt.Fprintln(w, "  llm-status  Check the combo suggestion model")
	fmt.Fprintln(w, "  version     Print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	global.PrintDefaults()
}

// stringList is a repeatable string flag. Card names may contain commas, so
// values are never split.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, "; ")
}

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty value")
	}
	*s = append(*s, v)
	return nil
}
