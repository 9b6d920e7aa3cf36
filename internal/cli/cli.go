// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses pagesmith command-line arguments.
//
// Commands:
//
//	pagesmith serve [--addr host:port] [--config path]
//	pagesmith keys list
//	pagesmith config show|path
//	pagesmith version
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (set at build time).
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies the requested top-level command.
type Command int

const (
	CmdServe Command = iota
	CmdKeys
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed flags and the remaining positional arguments.
type Args struct {
	// Subcommand is the first positional argument after the command.
	Subcommand string
	// Addr overrides the configured listen address.
	Addr string
	// ConfigPath overrides the config file location.
	ConfigPath string
	// Raw is everything after the command word.
	Raw []string
}

// Parse reads os.Args and routes to a command. No arguments defaults to
// serve.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(raw []string) (Command, Args) {
	var args Args

	if len(raw) == 0 {
		return CmdServe, args
	}

	cmd := strings.ToLower(raw[0])
	args.Raw = raw[1:]
	parseFlags(&args)

	switch cmd {
	case "serve", "server", "run":
		return CmdServe, args
	case "keys", "key":
		return CmdKeys, args
	case "config":
		return CmdConfig, args
	case "version", "-v", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		return CmdHelp, args
	}
}

// parseFlags extracts --addr/--config in both "--flag value" and
// "--flag=value" forms; the first non-flag becomes the subcommand.
func parseFlags(args *Args) {
	rest := args.Raw
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		if !strings.HasPrefix(arg, "-") {
			if args.Subcommand == "" {
				args.Subcommand = strings.ToLower(arg)
			}
			continue
		}

		name := strings.TrimLeft(arg, "-")
		value := ""
		if eq := strings.Index(name, "="); eq >= 0 {
			value = name[eq+1:]
			name = name[:eq]
		} else if i+1 < len(rest) && !strings.HasPrefix(rest[i+1], "-") {
			value = rest[i+1]
			i++
		}

		switch name {
		case "addr", "a":
			args.Addr = value
		case "config", "c":
			args.ConfigPath = value
		}
	}
}

// Usage prints command help to stderr.
func Usage() {
	fmt.Fprint(os.Stderr, `pagesmith - chat with LLM providers and preview generated front-end code

Usage:
  pagesmith [serve] [--addr host:port] [--config path]   start the server
  pagesmith keys list                                    list stored credentials
  pagesmith config show                                  print the active config
  pagesmith config path                                  print the config file path
  pagesmith version                                      print version info
`)
}

// PrintVersion prints version info to stdout.
func PrintVersion() {
	fmt.Printf("pagesmith %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
