// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"refit/internal/engine"
	"refit/internal/issue"
	"refit/internal/pipeline"
	"refit/pkg/dataset"
	"refit/pkg/modelspec"

	"github.com/spf13/cobra"
)

var (
	fitName  string
	fitPrior string

	fitCmd = &cobra.Command{
		Use:   "fit <model.cue> [data.csv]",
		Short: "Fit a model, reusing cached artifacts where possible",
		Long: `Fit a model defined in a CUE file against a CSV dataset.

Resolution is staged, cheapest first: a cached fit under the artifact
name is returned without touching the engine; otherwise a cached
prior-only compiled model (see --prior) lets the fit skip compilation;
otherwise the model is compiled and fitted from scratch. The result is
persisted under the artifact name before it is returned.

The dataset may be omitted for prior-predictive models
(sampler.sample_from_prior: true).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runFit,
	}
)

func init() {
	fitCmd.Flags().StringVar(&fitName, "name", "", "artifact name for the fit (default: model file basename)")
	fitCmd.Flags().StringVar(&fitPrior, "prior", "", "artifact name of a prior-only compiled model to reuse")
}

func runFit(cobraCmd *cobra.Command, args []string) error {
	ctx := cobraCmd.Context()
	cfg := app.loadConfig(ctx)

	spec, err := modelspec.ParseFile(args[0])
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load model file").
			WithResource(args[0]).
			WithSuggestion("Run 'refit --verbose fit' for the full error chain").
			Wrap(err).
			BuildError()
	}

	var data *dataset.Table
	if len(args) > 1 {
		data, err = dataset.ReadFile(args[1])
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("read dataset").
				WithResource(args[1]).
				WithSuggestion("Datasets are CSV files with a header row").
				Wrap(err).
				BuildError()
		}
	} else if !spec.Sampler.SampleFromPrior {
		return fmt.Errorf("model %q conditions on data but no dataset was given (set sampler.sample_from_prior to fit without one)", spec.Title)
	}

	name := fitName
	if name == "" {
		name = artifactNameFromPath(args[0])
	}

	p, err := app.newPipeline(cfg)
	if err != nil {
		return err
	}

	fit, err := p.Fit(ctx, pipeline.FitRequest{
		Spec:      spec,
		Data:      data,
		Name:      name,
		PriorSlot: fitPrior,
	})
	if err != nil {
		return err
	}

	renderFit(cobraCmd, name, fit)
	return nil
}

// artifactNameFromPath derives a cache entry name from a model file path.
func artifactNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// renderFit prints a fit result as a summary card.
func renderFit(cobraCmd *cobra.Command, name string, fit *engine.FitResult) {
	out := cobraCmd.OutOrStdout()

	fmt.Fprintln(out, TitleStyle.Render("Fit ")+ParamStyle.Render(name))
	fmt.Fprintln(out, VerboseStyle.Render(fmt.Sprintf("  run %s | engine %s | %d chains | sampled %s",
		fit.RunID, fit.EngineVersion, fit.Chains, fit.SampledAt.Format("2006-01-02 15:04:05"))))

	if fit.Diagnostics.DivergentTransitions > 0 {
		fmt.Fprintln(out, WarningStyle.Render(fmt.Sprintf("  %d divergent transitions",
			fit.Diagnostics.DivergentTransitions)))
	}

	params := make([]string, 0, len(fit.Summary))
	for param := range fit.Summary {
		params = append(params, param)
	}
	sort.Strings(params)

	if len(params) > 0 {
		fmt.Fprintf(out, "\n  %-24s %10s %10s %10s %10s %8s\n",
			"parameter", "mean", "sd", "q5", "q95", "rhat")
		for _, param := range params {
			s := fit.Summary[param]
			rhat := "-"
			if r, ok := fit.Diagnostics.Rhat[param]; ok {
				rhat = fmt.Sprintf("%.3f", r)
				if r > 1.01 {
					rhat = WarningStyle.Render(rhat)
				}
			}
			fmt.Fprintf(out, "  %-24s %10.3f %10.3f %10.3f %10.3f %8s\n",
				param, s.Mean, s.SD, s.Q5, s.Q95, rhat)
		}
	}
}
