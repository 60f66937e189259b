package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/internal/logging"
	"github.com/djeday123/goml-sentiment/pkg/config"
	"github.com/djeday123/goml-sentiment/pkg/store"
)

// Exit codes
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentiment: %v\n", err)
	}
	os.Exit(code)
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *environment, args []string) error
}

var commands = []command{
	{"train", "train a classifier on the configured review directories and save the run", runTrain},
	{"predict", "score texts (arguments, or stdin lines) with a saved run", runPredict},
	{"vocab", "print the vocabulary tokens for the given ids, or export it", runVocab},
	{"runs", "list saved runs", runList},
}

// environment is what every subcommand needs after flag parsing.
type environment struct {
	cfg   *config.Config
	log   zerolog.Logger
	flags *pflag.FlagSet
}

func run(args []string) (int, error) {
	// A missing .env is fine; values may come from the shell or config file.
	_ = godotenv.Load()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printHelp()
		return exitOK, nil
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		printHelp()
		return exitConfig, fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "YAML config file (default ./sentiment.yaml if present)")
	config.RegisterFlags(fs)
	registerCommandFlags(cmd.name, fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK, nil
		}
		return exitConfig, err
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, &environment{cfg: cfg, log: log, flags: fs}, fs.Args()); err != nil {
		if errors.Is(err, core.ErrConfig) {
			return exitConfig, err
		}
		return exitRuntime, err
	}
	return exitOK, nil
}

func registerCommandFlags(name string, fs *pflag.FlagSet) {
	switch name {
	case "train":
		fs.Bool("no-save", false, "do not persist the run")
	case "predict":
		fs.String("run", "", "run id (default latest)")
	case "vocab":
		fs.String("run", "", "run id (default latest)")
		fs.String("export", "", "write the vocabulary to this file, one token per line")
	}
}

func openStore(env *environment) (*store.Store, error) {
	return store.Open(env.cfg.Store.Path, env.cfg.Store.InMemory, env.log)
}

func printHelp() {
	fmt.Println("Usage: sentiment <command> [flags] [args]")
	fmt.Println("\nAvailable commands:")
	for _, c := range commands {
		fmt.Printf("  %-8s - %s\n", c.name, c.usage)
	}
	fmt.Println("\nEvery command accepts --config and the settings flags; run 'sentiment <command> --help'.")
	fmt.Println("Settings can also be given as SENTIMENT_* environment variables, e.g. SENTIMENT_TRAIN_EPOCHS=5.")
	fmt.Println()
}
