// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the waybar-speed service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wneessen/waybar-speed/internal/config"
	"github.com/wneessen/waybar-speed/internal/i18n"
	"github.com/wneessen/waybar-speed/internal/logger"
	"github.com/wneessen/waybar-speed/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cli struct {
	Config  string           `help:"Path to the config file." type:"path" short:"c"`
	Version kong.VersionFlag `help:"Print version information and quit." short:"v"`
}

func main() {
	var args cli
	kong.Parse(&args,
		kong.Name("waybar-speed"),
		kong.Description("Shows GPS coordinates and the current speed in waybar."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " (" + commit + ", " + date + ")"},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	log := logger.New(slog.LevelError)
	conf, err := loadConfig(args.Config)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	log = logger.New(conf.LogLevel)
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	serv, err := service.New(conf, log, t)
	if err != nil {
		log.Error("failed to initialize waybar-speed service", logger.Err(err))
		os.Exit(1)
	}

	log.Info(t.Get("starting waybar-speed service"), slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error(t.Get("failed to start waybar-speed service"), logger.Err(err))
	}
	log.Info(t.Get("shutting down waybar-speed service"))
}

// loadConfig reads the config from the given path, from the default location or falls back to
// defaults and environment variables.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}
	if path, file := findConfigFile(); path != "" && file != "" {
		return config.NewFromFile(path, file)
	}
	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "waybar-speed", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
