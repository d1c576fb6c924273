package driving

import "github.com/custodia-labs/policyqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Path returns where settings are stored.
	Path() string

	// Validate reports every setting that cannot work, joined into one error.
	Validate(settings *domain.AppSettings) error
}
