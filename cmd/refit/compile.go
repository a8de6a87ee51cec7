// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"refit/internal/issue"
	"refit/internal/pipeline"
	"refit/pkg/modelspec"

	"github.com/spf13/cobra"
)

var (
	compileName string

	compileCmd = &cobra.Command{
		Use:   "compile <model.cue>",
		Short: "Compile a model without data, warming the reuse cache",
		Long: `Compile a model to its engine representation without binding any data.

The compiled artifact is cached under the artifact name. A later
'refit fit' pointing at that name with --prior reuses the compiled
model and skips compilation, which dominates fitting cost for small
datasets. Typical flow: compile the prior-predictive model once, then
every compile-equivalent data fit binds against it.

If a compiled artifact for an equivalent model is already cached, the
engine is not invoked.`,
		Args: cobra.ExactArgs(1),
		RunE: runCompile,
	}
)

func init() {
	compileCmd.Flags().StringVar(&compileName, "name", "", "artifact name for the compiled model (default: model file basename)")
}

func runCompile(cobraCmd *cobra.Command, args []string) error {
	ctx := cobraCmd.Context()
	cfg := app.loadConfig(ctx)

	spec, err := modelspec.ParseFile(args[0])
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load model file").
			WithResource(args[0]).
			WithSuggestion("Run 'refit --verbose compile' for the full error chain").
			Wrap(err).
			BuildError()
	}

	name := compileName
	if name == "" {
		name = artifactNameFromPath(args[0])
	}

	p, err := app.newPipeline(cfg)
	if err != nil {
		return err
	}

	compiled, err := p.Compile(ctx, pipeline.CompileRequest{Spec: spec, Name: name})
	if err != nil {
		return err
	}

	out := cobraCmd.OutOrStdout()
	fmt.Fprintln(out, SuccessStyle.Render("Compiled ")+ParamStyle.Render(name))
	fmt.Fprintln(out, VerboseStyle.Render(fmt.Sprintf("  engine %s | model key %.12s",
		compiled.EngineVersion, compiled.SpecKey)))
	return nil
}
