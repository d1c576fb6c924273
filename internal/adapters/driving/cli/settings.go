package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure model providers, retrieval depth and chunking.

Settings are stored in config.toml in the configuration directory. Environment
variables such as POLICYQA_LLM_API_KEY override stored values for one run.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the settings file",
	Long: `Write the current settings to the settings file so they can be edited.
Use --defaults to discard stored values.`,
	RunE: runSettingsInit,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the model providers step by step.`,
	RunE:  runSettingsWizard,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the model services answer",
	Long:  `Ping the embedding, rerank and language model services with the current settings.`,
	RunE:  runSettingsCheck,
}

func init() {
	settingsInitCmd.Flags().Bool("defaults", false, "write default settings")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := need("settings", func(s *Services) bool { return s.Settings != nil })
	if err != nil {
		return err
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("File: %s\n", svc.Settings.Path())
	cmd.Println()

	cmd.Println("[Embedding]")
	showProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	if settings.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %d/s\n", settings.Embedding.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[LLM]")
	showProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Rerank]")
	cmd.Printf("  Model: %s\n", settings.Rerank.Model)
	cmd.Printf("  Base URL: %s\n", settings.Rerank.BaseURL)
	if settings.Rerank.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Rerank.APIKey))
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Initial K: %d\n", settings.Retrieval.InitialK)
	cmd.Printf("  Final K: %d\n", settings.Retrieval.FinalK)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunk.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunk.Overlap)
	cmd.Println()

	cmd.Println("[Documents]")
	cmd.Printf("  Extractor: %s\n", settings.Extractor)
	cacheDir := settings.CacheDir
	if cacheDir == "" {
		cacheDir = "(default)"
	}
	cmd.Printf("  Cache directory: %s\n", cacheDir)
	cmd.Println()

	if err := svc.Settings.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'policyqa settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func showProvider(cmd *cobra.Command, p domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", p.Description())
	cmd.Printf("  Model: %s\n", model)
	if p.IsLocal() && baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsInit(cmd *cobra.Command, _ []string) error {
	svc, err := need("settings", func(s *Services) bool { return s.Settings != nil })
	if err != nil {
		return err
	}
	useDefaults, err := cmd.Flags().GetBool("defaults")
	if err != nil {
		return fmt.Errorf("getting defaults flag: %w", err)
	}

	settings := svc.Settings.GetDefaults()
	if !useDefaults {
		current, err := svc.Settings.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings = *current
	}

	if err := svc.Settings.Save(&settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Settings written to %s\n", svc.Settings.Path())
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	svc, err := need("settings", func(s *Services) bool { return s.Settings != nil })
	if err != nil {
		return err
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("policyqa Settings Wizard")
	cmd.Println("========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	p, model, key, err := chooseProvider(cmd, reader, domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}
	if p != settings.Embedding.Provider {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.Provider, settings.Embedding.Model, settings.Embedding.APIKey = p, model, key
	cmd.Println()

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	p, model, key, err = chooseProvider(cmd, reader, domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}
	if p != settings.LLM.Provider {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.Provider, settings.LLM.Model, settings.LLM.APIKey = p, model, key
	cmd.Println()

	cmd.Println("Step 3: Reranker")
	cmd.Println("----------------")
	cmd.Printf("Enter rerank base URL [%s]: ", settings.Rerank.BaseURL)
	if v := readLine(reader); v != "" {
		settings.Rerank.BaseURL = v
	}
	cmd.Printf("Enter rerank model [%s]: ", settings.Rerank.Model)
	if v := readLine(reader); v != "" {
		settings.Rerank.Model = v
	}
	cmd.Println()

	if err := svc.Settings.Validate(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := svc.Settings.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	cmd.Printf("Settings saved to %s\n", svc.Settings.Path())
	cmd.Println("Run 'policyqa settings check' to test the services.")
	return nil
}

func chooseProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (provider domain.AIProvider, model, apiKey string, err error) {
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider = providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model = readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	svc, err := need("settings check", func(s *Services) bool { return s.Check != nil })
	if err != nil {
		return err
	}

	failed := 0
	for _, st := range svc.Check(cmd.Context()) {
		switch {
		case !st.Configured:
			failed++
			cmd.Printf("  %-10s not configured\n", st.Role)
		case st.Err != nil:
			failed++
			cmd.Printf("  %-10s %s FAILED: %v\n", st.Role, st.Model, st.Err)
		default:
			cmd.Printf("  %-10s %s OK\n", st.Role, st.Model)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d service(s) unavailable", failed)
	}
	cmd.Println("All services are reachable.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
