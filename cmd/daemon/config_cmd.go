// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/chatgate/internal/config"
	"github.com/ManuGH/chatgate/internal/version"
)

const redacted = "***"

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], os.Stdout, os.Stderr)
	case "dump":
		return runConfigDump(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  chatgate config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  chatgate config dump [--file|-f config.yaml]")
}

func configFileFlag(name string, args []string, stderr io.Writer) (string, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return "", false
	}

	path := strings.TrimSpace(file)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	return path, true
}

// runConfigValidate loads the configuration the way the daemon would. An
// empty path validates ENV and defaults only.
func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	path, ok := configFileFlag("chatgate config validate", args, stderr)
	if !ok {
		return 2
	}

	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	fmt.Fprintf(stdout, "✓ %s is valid\n", displayPath(path))
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env)
// as YAML with secrets redacted.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	path, ok := configFileFlag("chatgate config dump", args, stderr)
	if !ok {
		return 2
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	redactSecrets(&cfg)

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}

func displayPath(path string) string {
	if path == "" {
		return "environment"
	}
	return path
}

func redactSecrets(cfg *config.AppConfig) {
	for _, s := range []*string{
		&cfg.API.Key,
		&cfg.Webhook.HMACKey,
		&cfg.Proxy.Password,
		&cfg.Store.Redis.Password,
	} {
		if *s != "" {
			*s = redacted
		}
	}
}
