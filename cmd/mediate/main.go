// Package main is the terminal client for a mediation session.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mindful-resolve/internal/client"
	"mindful-resolve/internal/pkg/sessioncode"
	"mindful-resolve/internal/tui"
)

const defaultServer = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:   "mediate",
		Short: "Share perspectives with your partner and read an AI-guided mediation",
		Long: `mediate connects to a mindful-resolve server.

  mediate start        open a new session as Partner 1 and share its code
  mediate join CODE    join your partner's session as Partner 2
  mediate              choose from the home screen`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(server, timeout, tui.Entry{})
		},
	}

	root.PersistentFlags().StringVar(&server, "server", envOr("MEDIATE_SERVER", defaultServer), "mediation server base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-request timeout")

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a new session as Partner 1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(server, timeout, tui.Entry{Create: true})
		},
	}

	join := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a session as Partner 2",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := sessioncode.Normalize(args[0])
			if len(code) != sessioncode.Length {
				return fmt.Errorf("session code must be %d characters", sessioncode.Length)
			}
			return run(server, timeout, tui.Entry{JoinCode: code})
		},
	}

	root.AddCommand(start, join)
	return root
}

func run(server string, timeout time.Duration, entry tui.Entry) error {
	api := client.New(server, timeout)
	model := tui.New(api, entry)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run terminal ui failed: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
