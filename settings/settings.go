// Package settings holds the user's translation preferences and persists
// them as a YAML file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/provider"
	"gopkg.in/yaml.v3"
)

// FileName is the default settings file name.
const FileName = "settings.yaml"

// ErrSameLanguage is returned by Validate when source and target match.
var ErrSameLanguage = errors.New("source and target languages must be different")

// Settings is the persisted preference record.
type Settings struct {
	SourceLanguage     string                 `yaml:"sourceLanguage" json:"sourceLanguage"`
	TargetLanguage     string                 `yaml:"targetLanguage" json:"targetLanguage"`
	TranslationService string                 `yaml:"translationService" json:"translationService"`
	APIKeys            map[string]string      `yaml:"apiKeys,omitempty" json:"-"`
	Options            prismlate.FieldOptions `yaml:"options" json:"options"`
	Context            string                 `yaml:"context,omitempty" json:"context,omitempty"`
	CharLimit          int                    `yaml:"charLimit,omitempty" json:"charLimit,omitempty"`
}

// Default returns the settings of a fresh install.
func Default() Settings {
	return Settings{
		SourceLanguage:     prismlate.AutoLang,
		TargetLanguage:     "es",
		TranslationService: provider.ServiceGoogle,
		APIKeys:            map[string]string{},
		Options:            prismlate.DefaultFieldOptions(),
		CharLimit:          prismlate.DefaultCharLimit,
	}
}

// Validate rejects unknown services and identical languages.
func (s Settings) Validate() error {
	if s.TargetLanguage == "" {
		return fmt.Errorf("target language is required")
	}
	if !provider.IsSupported(s.TranslationService) {
		return fmt.Errorf("unknown translation service %q", s.TranslationService)
	}
	if s.SourceLanguage != prismlate.AutoLang && prismlate.SameLanguage(s.SourceLanguage, s.TargetLanguage) {
		return ErrSameLanguage
	}
	if s.CharLimit < 0 {
		return fmt.Errorf("charLimit must not be negative")
	}
	return nil
}

// EnvKey returns the environment variable consulted for a service's API
// key, e.g. PRISMLATE_DEEPL_API_KEY.
func EnvKey(service string) string {
	return "PRISMLATE_" + strings.ToUpper(service) + "_API_KEY"
}

// APIKey resolves the key for service: explicit wins over the
// environment, which wins over the stored key.
func (s Settings) APIKey(service, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(EnvKey(service)); v != "" {
		return v
	}
	return s.APIKeys[service]
}

// ProviderConfig returns the provider configuration for the selected
// service.
func (s Settings) ProviderConfig(explicitKey string) provider.Config {
	return provider.Config{
		Service: s.TranslationService,
		APIKey:  s.APIKey(s.TranslationService, explicitKey),
	}
}

// RunnerOptions converts the settings to runner options.
func (s Settings) RunnerOptions() []prismlate.RunnerOption {
	opts := []prismlate.RunnerOption{
		prismlate.WithSourceLang(s.SourceLanguage),
		prismlate.WithFieldOptions(s.Options),
		prismlate.WithServiceName(s.TranslationService),
	}
	if s.Context != "" {
		opts = append(opts, prismlate.WithContext(s.Context))
	}
	if s.CharLimit > 0 {
		opts = append(opts, prismlate.WithCharLimit(s.CharLimit))
	}
	return opts
}

// FileStore loads and saves settings as YAML.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the settings file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "prismlate", FileName), nil
}

// Path returns the file path.
func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads the settings. A missing file yields Default. Fields absent
// from the file keep their default values.
func (fs *FileStore) Load() (Settings, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	s := Default()
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("reading %s: %w", fs.path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", fs.path, err)
	}
	if s.APIKeys == nil {
		s.APIKeys = map[string]string{}
	}
	return s, nil
}

// Save validates and writes the settings. The file holds API keys, so it
// is readable by the owner only.
func (fs *FileStore) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(fs.path), err)
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", fs.path, err)
	}
	return nil
}
