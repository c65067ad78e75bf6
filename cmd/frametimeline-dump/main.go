package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/visiona/frametimeline"
	"github.com/visiona/frametimeline/config"
)

const defaultConfigPath = "config/frametimeline.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Warn("falling back to default configuration", "config", *configPath, "error", err)
		cfg = config.Default()
	}

	ft := frametimeline.NewFromConfig(cfg)
	ft.OnBootFinished()

	out, err := ft.ParseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Print(out)
}
