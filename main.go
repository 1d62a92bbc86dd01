package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"unresponsive/config"
	"unresponsive/core"
	"unresponsive/core/logging"
)

const version = "unresponsive v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(os.Args, ctx); err != nil {
		logging.Fatal("%v", err)
	}
}

// run wires configuration, logging and the engine together and blocks
// until the context is cancelled or the engine dies. Split from main
// so tests can drive the whole binary.
func run(args []string, ctx context.Context) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	single := fs.Bool("1", false, "serve only one client at a time")
	configPath := fs.String("config", "", "path to YAML configuration file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Println("Syntax: unresponsive [OPTIONS] PORT DELAY")
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version)
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// PORT and DELAY on the command line override the file.
	rest := fs.Args()
	if len(rest) > 2 {
		fs.Usage()
		return errors.New("too many arguments")
	}
	if len(rest) < 2 && *configPath == "" {
		fs.Usage()
		return errors.New("PORT and DELAY are required")
	}
	if len(rest) >= 1 {
		port, err := strconv.Atoi(rest[0])
		if err != nil {
			fs.Usage()
			return fmt.Errorf("invalid PORT %q", rest[0])
		}
		cfg.Port = port
	}
	if len(rest) == 2 {
		delay, err := strconv.Atoi(rest[1])
		if err != nil {
			fs.Usage()
			return fmt.Errorf("invalid DELAY %q", rest[1])
		}
		cfg.Delay = delay
	}
	if *single {
		cfg.SingleClient = true
	}

	if err := cfg.Validate(); err != nil {
		fs.Usage()
		return err
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.InfoLog, cfg.Logging.ErrorLog); err != nil {
		return err
	}

	engine, err := core.NewEngine(cfg)
	if err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		return err
	}
	return engine.Wait()
}
