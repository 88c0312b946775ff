package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/dom"
	"github.com/ZaguanLabs/prismlate/pipeline"
	"github.com/ZaguanLabs/prismlate/provider"
	"github.com/ZaguanLabs/prismlate/settings"
	"github.com/spf13/cobra"
)

// overrides are the settings flags shared by translate and preview.
type overrides struct {
	target  string
	source  string
	service string
	apiKey  string
	context string
	mock    bool
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.target, "lang", "l", "", "Target language code (default: from settings)")
	f.StringVarP(&o.source, "source", "s", "", `Source language code or "auto"`)
	f.StringVar(&o.service, "service", "", "Translation service: "+strings.Join(provider.Services, ", "))
	f.StringVar(&o.apiKey, "api-key", "", "API key for the service")
	f.StringVarP(&o.context, "context", "c", "", "Context passed to the service, e.g. a brand voice")
	f.BoolVar(&o.mock, "mock", false, "Use the offline mock service")
	_ = f.MarkHidden("mock")
}

// apply returns the stored settings with the flags layered on top.
func (o *overrides) apply(s settings.Settings) (settings.Settings, error) {
	if o.target != "" {
		s.TargetLanguage = o.target
	}
	if o.source != "" {
		s.SourceLanguage = o.source
	}
	if o.service != "" {
		s.TranslationService = o.service
	}
	if o.context != "" {
		s.Context = o.context
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (a *app) newPipeline(o *overrides) (*pipeline.Pipeline, error) {
	st, err := o.apply(a.settings)
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		Config:   a.cfg,
		Settings: st,
		APIKey:   o.apiKey,
		Logger:   a.logger.Logger,
	}
	if o.mock {
		opts.Gateway = provider.NewMockProvider()
	}
	return pipeline.New(opts)
}

// input is one page read from a file or stdin.
type input struct {
	name string
	path string // Empty for stdin
	html string
	doc  *dom.Document
}

func readInputs(paths []string, stdin io.Reader) ([]*input, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		in := &input{name: "stdin", html: string(data)}
		return []*input{in}, in.parse()
	}

	inputs := make([]*input, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		in := &input{name: filepath.Base(p), path: p, html: string(data)}
		if err := in.parse(); err != nil {
			return nil, fmt.Errorf("%s: %w", in.name, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (in *input) parse() error {
	doc, err := dom.ParseString(in.html)
	if err != nil {
		return err
	}
	in.doc = doc
	return nil
}

// render returns the whole document for full pages and the body contents
// for fragments.
func (in *input) render() (string, error) {
	if strings.Contains(strings.ToLower(in.html), "<html") {
		return in.doc.HTML()
	}
	return in.doc.BodyHTML()
}

func newTranslateCmd(a *app) *cobra.Command {
	var (
		o           overrides
		output      string
		inPlace     bool
		jsonOut     bool
		dryRun      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "translate [file...]",
		Short: "Translate the content fields of saved edit pages",
		Long: `Translate the content fields of one or more saved edit pages.

With no files the page is read from stdin and written to stdout. With
several files, --output names a directory.`,
		Example: `  prismlate translate -l fr page.html > page.fr.html
  prismlate translate --service deepl -l de -o out/ a.html b.html
  cat page.html | prismlate translate -l ja --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPlace && output != "" {
				return errors.New("--in-place and --output are mutually exclusive")
			}
			if inPlace && len(args) == 0 {
				return errors.New("--in-place needs input files")
			}
			if err := a.load(); err != nil {
				return err
			}
			if dryRun {
				return a.preview(cmd, &o, args, jsonOut)
			}
			if concurrency <= 0 {
				concurrency = a.cfg.Runner.Concurrency
			}
			return a.translate(cmd, &o, args, output, inPlace, jsonOut, concurrency)
		},
	}

	o.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "Output file, or directory for several inputs")
	f.BoolVarP(&inPlace, "in-place", "i", false, "Overwrite the input files")
	f.BoolVar(&jsonOut, "json", false, "Print the run results as JSON")
	f.BoolVar(&dryRun, "dry-run", false, "List the fields that would be translated")
	f.IntVar(&concurrency, "concurrency", 0, "Pages translated at once (default: from config)")
	return cmd
}

// pageReport is one entry of the --json output.
type pageReport struct {
	Input string `json:"input"`
	*prismlate.RunResult
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

func (a *app) translate(cmd *cobra.Command, o *overrides, paths []string, output string, inPlace, jsonOut bool, concurrency int) error {
	inputs, err := readInputs(paths, cmd.InOrStdin())
	if err != nil {
		return err
	}

	p, err := a.newPipeline(o)
	if err != nil {
		return err
	}
	defer p.Close()

	runner := p.Runner("")
	a.progressf("Translating %d page(s) to %s with %s...\n",
		len(inputs), prismlate.GetLanguageName(runner.TargetLang()), p.Settings.TranslationService)

	jobs := make([]prismlate.Job, len(inputs))
	for i, in := range inputs {
		jobs[i] = prismlate.Job{Name: in.name, Source: in.doc}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	start := time.Now()
	results, err := prismlate.RunAll(ctx, runner, jobs, concurrency)
	if err != nil {
		return fmt.Errorf("translation interrupted: %w", err)
	}
	elapsed := time.Since(start)

	var reports []pageReport
	var failed int
	for i, res := range results {
		in := inputs[i]
		report := pageReport{Input: in.name, RunResult: res.Result}
		if res.Err != nil {
			failed++
			report.Error = res.Err.Error()
			reports = append(reports, report)
			a.progressf("%s: %v\n", in.name, res.Err)
			continue
		}

		out, err := in.render()
		if err != nil {
			return err
		}
		if jsonOut && output == "" && !inPlace {
			report.HTML = out
		} else if err := writeOutput(cmd.OutOrStdout(), in, out, output, inPlace, len(inputs)); err != nil {
			return err
		}
		reports = append(reports, report)

		r := res.Result
		a.progressf("%s: %d/%d fields translated, %d from cache, %d paths rewritten\n",
			in.name, r.FieldsTranslated, r.TotalFields, r.CachedCount, r.PathsRewritten)
		for _, msg := range r.Errors {
			a.progressf("  %s\n", msg)
		}
		if r.Warning != "" {
			a.progressf("  warning: %s\n", r.Warning)
		}
	}
	a.progressf("Done in %v\n", elapsed.Round(time.Millisecond))

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}

	if failed == len(inputs) {
		return results[0].Err
	}
	return nil
}

func writeOutput(stdout io.Writer, in *input, content, output string, inPlace bool, total int) error {
	var path string
	switch {
	case inPlace:
		path = in.path
	case output == "":
		_, err := io.WriteString(stdout, content)
		return err
	case total > 1:
		if err := os.MkdirAll(output, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		path = filepath.Join(output, in.name)
	default:
		path = output
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		o       overrides
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "preview [file...]",
		Short: "List the fields a translation would touch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.preview(cmd, &o, args, jsonOut)
		},
	}
	o.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the preview as JSON")
	return cmd
}

func (a *app) preview(cmd *cobra.Command, o *overrides, paths []string, jsonOut bool) error {
	inputs, err := readInputs(paths, cmd.InOrStdin())
	if err != nil {
		return err
	}
	st, err := o.apply(a.settings)
	if err != nil {
		return err
	}

	// Preview never reaches the gateway.
	runner := prismlate.NewRunner(st.TargetLanguage, provider.NewMockProvider(), st.RunnerOptions()...)

	type previewReport struct {
		Input string `json:"input"`
		*prismlate.PreviewResult
	}
	var reports []previewReport
	stdout := cmd.OutOrStdout()

	for _, in := range inputs {
		res, err := runner.Preview(in.doc)
		if err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
		if jsonOut {
			reports = append(reports, previewReport{Input: in.name, PreviewResult: res})
			continue
		}

		fmt.Fprintf(stdout, "Preview: %s -> %s\n", in.name, st.TargetLanguage)
		fmt.Fprintf(stdout, "Found %d fields in %d batches:\n\n", res.FieldsFound, res.Batches)
		for _, f := range res.Fields {
			label := f.Label
			if label == "" {
				label = f.ID
			}
			fmt.Fprintf(stdout, "%3d. %-10s %-30s %5d chars\n", f.Index, f.Kind, label, f.Chars)
		}
		fmt.Fprintln(stdout)
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	return nil
}
