// Package cli provides the policyqa command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// version is set at build time via ldflags or SetVersion.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// annotationNoServices marks commands that run without wiring services.
const annotationNoServices = "policyqa/no-services"

// Options carries the global flags to the Initialiser.
type Options struct {
	Verbose   bool
	ConfigDir string
}

// Services holds the driving ports the commands use.
type Services struct {
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Answer    driving.AnswerService
	Chat      driving.ChatService
	Cache     driving.CacheService
	Settings  driving.SettingsService

	// Check pings the model collaborators. Optional.
	Check func(ctx context.Context) []domain.ServiceStatus

	// Close releases collaborator connections. Optional.
	Close func() error
}

// Initialiser builds the services once the global flags are parsed.
type Initialiser func(opts Options) (*Services, error)

var (
	services    *Services
	initialiser Initialiser
)

// errNotConfigured is returned when a command runs without its service.
var errNotConfigured = errors.New("service not configured")

var rootCmd = &cobra.Command{
	Use:   "policyqa",
	Short: "Ask claims questions about insurance policy PDFs",
	Long: `policyqa indexes an insurance policy PDF and answers claims questions about it.

Each document is split into passages, embedded and cached under ~/.policyqa.
Questions are answered from the passages a reranker judges most relevant, and
the answer is a verdict: Approved, Not Approved or Insufficient Information.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline stages and timings")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.policyqa)")
}

// setup applies global flags and builds the services on first use.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if services != nil || initialiser == nil || cmd.Annotations[annotationNoServices] != "" {
		return nil
	}

	svc, err := initialiser(Options{Verbose: verbose, ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	services = svc
	return nil
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices injects ready-made services, bypassing the Initialiser.
func SetServices(s *Services) {
	services = s
}

// SetInitialiser registers the function that wires services from flags.
func SetInitialiser(fn Initialiser) {
	initialiser = fn
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func closeServices() {
	if services != nil && services.Close != nil {
		if err := services.Close(); err != nil {
			logger.Warn("closing services: %v", err)
		}
	}
}

// need returns the services or an error naming the missing one.
func need(name string, ok func(*Services) bool) (*Services, error) {
	if services == nil || !ok(services) {
		return nil, fmt.Errorf("%s: %w", name, errNotConfigured)
	}
	return services, nil
}
