// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfigFile(t *testing.T) {
	t.Run("no config file in home directory", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		path, file := findConfigFile()
		if path != "" || file != "" {
			t.Errorf("expected no config file, got %s/%s", path, file)
		}
	})
	t.Run("config file in home directory is found", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		dir := filepath.Join(home, ".config", "waybar-speed")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create config dir: %s", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("units = \"imperial\"\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %s", err)
		}
		path, file := findConfigFile()
		if path != dir || file != "config.toml" {
			t.Errorf("expected %s/config.toml, got %s/%s", dir, path, file)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit config file is loaded", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		confPath := filepath.Join(t.TempDir(), "speed.toml")
		if err := os.WriteFile(confPath, []byte("units = \"nautical\"\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %s", err)
		}
		conf, err := loadConfig(confPath)
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Units != "nautical" {
			t.Errorf("expected units to be nautical, got %s", conf.Units)
		}
	})
	t.Run("defaults are used without config file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		conf, err := loadConfig("")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Units != "imperial" {
			t.Errorf("expected units to be imperial, got %s", conf.Units)
		}
	})
	t.Run("missing config file fails", func(t *testing.T) {
		if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected loading a missing config file to fail")
		}
	})
}
