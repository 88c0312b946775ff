// Command prismlate translates the content fields of CMS edit pages.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/config"
	"github.com/ZaguanLabs/prismlate/logging"
	"github.com/ZaguanLabs/prismlate/settings"
	"github.com/spf13/cobra"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = prismlate.Version
	commit    = prismlate.GitCommit
	buildDate = prismlate.BuildDate
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// app holds the global flags and what they load.
type app struct {
	stdout, stderr io.Writer

	configPath   string
	settingsPath string
	logLevel     string
	quiet        bool

	cfg      *config.Config
	store    *settings.FileStore
	settings settings.Settings
	logger   *logging.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   prismlate.Name,
		Short: prismlate.Description,
		Long: `prismlate translates the content fields of CMS edit pages.

It finds the title, text, rich text, alt text and tag fields of a saved edit
page, sends them one by one to a translation service and writes the page back
with the translations and with localized paths rewritten.

Services:
  google     Google Translate (no key needed)
  deepl      DeepL API
  azure      Azure AI Translator
  deepseek   DeepSeek chat completions
  openai     OpenAI chat completions

API keys are read from --api-key, then PRISMLATE_<SERVICE>_API_KEY, then the
settings file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./prismlate.yaml if present)")
	root.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "Settings file (default: user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress progress output")

	root.AddCommand(
		newTranslateCmd(a),
		newPreviewCmd(a),
		newServeCmd(a),
		newQuotaCmd(a),
		newCacheCmd(a),
		newSettingsCmd(a),
		newVersionCmd(a),
	)
	return root
}

// load reads the config, settings and logger once per invocation.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	path := a.settingsPath
	if path == "" {
		path = cfg.SettingsFile
	}
	if path == "" {
		if path, err = settings.DefaultPath(); err != nil {
			return err
		}
	}
	store := settings.NewFileStore(path)
	st, err := store.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Output:     a.stderr,
	})
	if err != nil {
		return err
	}

	a.cfg, a.store, a.settings, a.logger = cfg, store, st, logger
	return nil
}

func (a *app) progressf(format string, args ...any) {
	if !a.quiet {
		fmt.Fprintf(a.stderr, format, args...)
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "%s %s\n", prismlate.Name, version)
			if commit != "unknown" && commit != "" {
				fmt.Fprintf(a.stdout, "  commit:  %s\n", commit)
			}
			if buildDate != "unknown" && buildDate != "" {
				fmt.Fprintf(a.stdout, "  built:   %s\n", buildDate)
			}
		},
	}
}
