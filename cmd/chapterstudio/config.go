package main

import (
	"fmt"
	"os"

	"github.com/azyu/chapterstudio/internal/app"
	"github.com/azyu/chapterstudio/internal/llm/adapters"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the global configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with API keys masked",
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

		data, err := yaml.Marshal(masked(settings))
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		source := cm.Path()
		if !cm.Exists() {
			source += " (not found, showing defaults)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", source, data)
		return nil
	},
}

// masked returns a copy of config safe to print.
func masked(config *types.GlobalConfig) *types.GlobalConfig {
	out := *config
	out.Providers = make(map[string]*types.ProviderConfig, len(config.Providers))
	for name, pc := range config.Providers {
		if pc == nil {
			continue
		}
		cp := *pc
		if cp.APIKey != "" {
			cp.APIKey = maskAPIKey(cp.APIKey)
		}
		out.Providers[name] = &cp
	}
	return &out
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cm, err := configManager()
		if err != nil {
			return err
		}
		if cm.Exists() && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cm.Path())
		}

		config := types.DefaultGlobalConfig()
		choice := initChoice{
			BackendURL: config.Backend.BaseURL,
			DBPath:     config.Server.DBPath,
			Provider:   config.Defaults.Provider,
		}
		if err := initForm(&choice).Run(); err != nil {
			return fmt.Errorf("config form failed: %w", err)
		}
		return writeInitialConfig(cm, config, choice)
	},
}

// initChoice holds the answers of the config init form.
type initChoice struct {
	BackendURL string
	DBPath     string
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
}

func initForm(c *initChoice) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Where 'chapterstudio open' finds the backend").
				Value(&c.BackendURL),
			huh.NewInput().
				Title("Database file").
				Description("Used by 'chapterstudio serve'").
				Value(&c.DBPath),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("LLM provider").
				Options(
					huh.NewOption("OpenAI", adapters.ProviderOpenAI),
					huh.NewOption("Google Gemini", adapters.ProviderGemini),
					huh.NewOption("Local (Ollama/LM Studio)", adapters.ProviderLocal),
				).
				Value(&c.Provider),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Leave blank to use OPENAI_API_KEY or GEMINI_API_KEY, or write ${VAR}").
				EchoMode(huh.EchoModePassword).
				Value(&c.APIKey),
			huh.NewInput().
				Title("Model").
				Placeholder("provider default").
				Value(&c.Model),
			huh.NewInput().
				Title("Base URL").
				Placeholder("provider default").
				Value(&c.BaseURL),
		),
	)
}

func writeInitialConfig(cm *app.ConfigManager, config *types.GlobalConfig, c initChoice) error {
	config.Backend.BaseURL = c.BackendURL
	config.Server.DBPath = c.DBPath
	config.Defaults.Provider = c.Provider
	config.Providers[c.Provider] = &types.ProviderConfig{
		APIKey:       c.APIKey,
		DefaultModel: c.Model,
		BaseURL:      c.BaseURL,
	}

	if err := cm.Save(config); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", cm.Path())
	return nil
}
