package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ZaguanLabs/prismlate/cache"
	"github.com/ZaguanLabs/prismlate/metrics"
	"github.com/ZaguanLabs/prismlate/pipeline"
	"github.com/ZaguanLabs/prismlate/provider"
	"github.com/ZaguanLabs/prismlate/server"
	"github.com/ZaguanLabs/prismlate/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		o    overrides
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			recorder := metrics.NewRecorder()
			st, err := o.apply(a.settings)
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Config:   a.cfg,
				Settings: st,
				APIKey:   o.apiKey,
				Logger:   a.logger.Logger,
				Recorder: recorder,
			}
			if o.mock {
				opts.Gateway = provider.NewMockProvider()
			}
			p, err := pipeline.New(opts)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("starting server",
				zap.String("service", st.TranslationService),
				zap.String("target", st.TargetLanguage))
			return server.New(p, a.cfg.Server, a.logger.Logger, recorder).ListenAndServe(ctx)
		},
	}
	o.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: from config)")
	return cmd
}

func newQuotaCmd(a *app) *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show the monthly character usage of the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			// Usage is tracked per service, so no key is needed to read it.
			o.mock = true
			p, err := a.newPipeline(&o)
			if err != nil {
				return err
			}
			defer p.Close()

			q, err := p.Quota(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Service:\t%s\n", q.Service)
			fmt.Fprintf(w, "Used:\t%d\n", q.Used)
			fmt.Fprintf(w, "Remaining:\t%d of %d\n", q.Remaining, q.Total)
			fmt.Fprintf(w, "Resets:\t%s\n", q.ResetDate.Format(time.DateOnly))
			return w.Flush()
		},
	}
	o.register(cmd)
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Export or import cached translations",
	}

	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the translation cache to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeFn()

			meta := map[string]string{"backend": a.cfg.Cache.Backend}
			if err := cache.ExportToFile(c, args[0], meta); err != nil {
				return err
			}
			a.progressf("Exported cache to %s\n", args[0])
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Load translations from a JSON export into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := cache.ImportFromFile(c, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d failed)\n", res.Imported, res.Failed)
			return nil
		},
	}

	cmd.AddCommand(export, imp)
	return cmd
}

func (a *app) openCache() (cache.Lister, func(), error) {
	if err := a.load(); err != nil {
		return nil, nil, err
	}
	if a.cfg.Cache.Backend == "none" {
		return nil, nil, errors.New("cache is disabled (cache.backend: none)")
	}
	c, err := cache.New(cache.Config{
		Backend:    a.cfg.Cache.Backend,
		TTL:        a.cfg.Cache.TTL,
		MaxEntries: a.cfg.Cache.MaxEntries,
		RedisURL:   a.cfg.Cache.RedisURL,
		KeyPrefix:  a.cfg.Cache.KeyPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if closer, ok := c.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	return c, closeFn, nil
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return printSettings(cmd, a.store.Path(), a.settings)
		},
	}

	var (
		o        overrides
		charLim  int
		clearKey bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			st, err := o.apply(a.settings)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("char-limit") {
				st.CharLimit = charLim
			}
			if st.APIKeys == nil {
				st.APIKeys = map[string]string{}
			}
			switch {
			case clearKey:
				delete(st.APIKeys, st.TranslationService)
			case o.apiKey != "":
				st.APIKeys[st.TranslationService] = o.apiKey
			}
			if err := a.store.Save(st); err != nil {
				return err
			}
			a.settings = st
			return printSettings(cmd, a.store.Path(), st)
		},
	}
	o.register(set)
	set.Flags().IntVar(&charLim, "char-limit", 0, "Characters per request")
	set.Flags().BoolVar(&clearKey, "clear-key", false, "Forget the stored key of the service")

	cmd.AddCommand(set)
	return cmd
}

func printSettings(cmd *cobra.Command, path string, s settings.Settings) error {
	key := "not set"
	if s.APIKey(s.TranslationService, "") != "" {
		key = "set"
	}
	if !provider.RequiresKey(s.TranslationService) {
		key = "not required"
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "File:\t%s\n", path)
	fmt.Fprintf(w, "Source:\t%s\n", s.SourceLanguage)
	fmt.Fprintf(w, "Target:\t%s\n", s.TargetLanguage)
	fmt.Fprintf(w, "Service:\t%s\n", s.TranslationService)
	fmt.Fprintf(w, "API key:\t%s\n", key)
	fmt.Fprintf(w, "Char limit:\t%d\n", s.CharLimit)
	if s.Context != "" {
		fmt.Fprintf(w, "Context:\t%s\n", s.Context)
	}
	fmt.Fprintf(w, "Options:\ttitles=%t richtext=%t alt=%t tags=%t formatting=%t\n",
		s.Options.TranslateTitles, s.Options.TranslateRichText, s.Options.TranslateAltText,
		s.Options.TranslateTags, s.Options.PreserveFormatting)
	return w.Flush()
}
