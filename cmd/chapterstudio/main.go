// Package main is the entry point for chapterstudio.
package main

import (
	"fmt"
	"os"

	"github.com/azyu/chapterstudio/internal/app"
	"github.com/azyu/chapterstudio/internal/logging"
	"github.com/azyu/chapterstudio/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chapterstudio",
	Short: "A terminal studio for drafting chapters with AI variants",
	Long: `Chapter Studio generates several variants of a chapter from a short
brief, lets you pick one, edit it and save it. Characters, timeline events
and glossary terms are kept alongside and fed into every generation.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newApp loads the config and builds the clients with a CLI logger.
func newApp() (*app.App, error) {
	cm, err := configManager()
	if err != nil {
		return nil, err
	}
	application, err := app.New(cm, logging.NewDevelopment(verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return application, nil
}

func configManager() (*app.ConfigManager, error) {
	if configPath != "" {
		return app.NewConfigManagerAt(configPath), nil
	}
	return app.NewConfigManager()
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the chapter studio TUI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := configManager()
		if err != nil {
			return err
		}
		settings, err := cm.Load()
		if err != nil {
			return err
		}

		// stdout belongs to the alt screen.
		logger := zap.NewNop()
		if settings.Logging.File != "" {
			if logger, err = logging.New(settings.Logging.Level, settings.Logging.File); err != nil {
				return err
			}
		}

		application, err := app.New(cm, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer application.Close()

		model := tui.New(tui.Config{
			Backend:    application.Backend,
			Session:    application.Session,
			Catalog:    application.Catalog,
			Characters: application.Characters,
			Timeline:   application.Timeline,
			Glossary:   application.Glossary,
			Logger:     logger.Named("tui"),
			Title:      application.Backend.BaseURL(),
		})
		p := tea.NewProgram(model, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/chapterstudio/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	generateCmd.Flags().String("summary", "", "Chapter summary (required without a form)")
	generateCmd.Flags().String("tone", "", "Tone")
	generateCmd.Flags().String("pov", "", "Point of view")
	generateCmd.Flags().String("word-count", "", "Target word count per variant")
	generateCmd.Flags().String("must-include", "", "Things the chapter must include")
	generateCmd.Flags().Int("select", 0, "Select variant N (1-based) after generating")

	exportCmd.Flags().StringP("format", "f", "", "Output format: md or html (default from --out, else md)")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")

	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().String("db", "", "SQLite database path (default from config)")
	serveCmd.Flags().StringP("provider", "p", "", "LLM provider: openai, gemini or local (default from config)")

	searchCmd.Flags().StringP("type", "t", "", "Limit to one source: chapter, character, event or term")
	searchCmd.Flags().IntP("limit", "n", 0, "Maximum hits (default 20)")

	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	glossaryCmd.AddCommand(glossaryAnnotateCmd)
	searchCmd.AddCommand(searchReindexCmd)

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(glossaryCmd)
	rootCmd.AddCommand(searchCmd)
}
