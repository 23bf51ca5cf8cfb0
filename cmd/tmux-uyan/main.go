// Command tmux-uyan prints the next prayer for a tmux status line. It is
// "uyan next" with the short name-and-time format as default:
//
//	set -g status-right '#(tmux-uyan --format countdown)'
package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/smokyabdulrahman/uyan/internal/cli"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

// nextArgs turns the command line into arguments for "uyan next".
func nextArgs(args []string) []string {
	if slices.Contains(args, "--version") {
		return []string{"--version"}
	}
	out := append([]string{"next"}, args...)
	if !slices.ContainsFunc(args, func(a string) bool {
		return a == "--format" || strings.HasPrefix(a, "--format=")
	}) {
		out = append(out, "--format", prayer.FormatNameAndTime)
	}
	return out
}

func main() {
	rootCmd := cli.NewRootCmd(version)
	rootCmd.SetArgs(nextArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		// Keep the status bar short.
		fmt.Fprint(os.Stdout, "--:--")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
