// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	EngineNotFoundId Id = iota + 1
	ModelFileNotFoundId
	ModelFileParseErrorId
	DatasetNotFoundId
	CorruptCacheId
	StaleCacheId
	BindIncompatibleId
	FitDivergedId
	ConfigLoadFailedId
	MirrorUnreachableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links, kept separate from extLinks
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	engineNotFoundIssue = &Issue{
		id: EngineNotFoundId,
		mdMsg: `
# Sampler engine not found!

refit could not locate the sampler engine binary.

## Things you can try:
- Check that the engine binary is installed and in your PATH
- Point refit at the binary explicitly:
~~~cue
engine: binary: "/opt/cmdstan/bin/refit-engine"
~~~

- Or via environment variable:
~~~
$ REFIT_ENGINE_BINARY=/opt/cmdstan/bin/refit-engine refit fit model.cue data.csv
~~~`,
	}

	modelFileNotFoundIssue = &Issue{
		id: ModelFileNotFoundId,
		mdMsg: `
# No model file found!

We searched for a model file but couldn't find one at the given path.

## Things you can try:
- Check the path for typos
- Model files use the .cue extension:
~~~
$ refit fit models/rt_shifted_lognormal.cue data/lexdec.csv
~~~

## Example model file:
~~~cue
title:   "RT by frequency"
formula: "rt ~ frequency + (frequency | subject)"
family:  "shifted_lognormal"

priors: [
	{class: "b", distribution: "normal(0, 0.5)"},
	{class: "sd", distribution: "normal(0, 0.3)"},
]

sampler: {
	chains:        4
	iter_sampling: 1000
	iter_warmup:   1000
}
~~~`,
	}

	modelFileParseErrorIssue = &Issue{
		id: ModelFileParseErrorId,
		mdMsg: `
# Failed to parse model file!

Your model file contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- An unsupported family name
- A formula without an outcome variable

## Things you can try:
- Check the error message above for the specific field
- Run with verbose mode for more details:
~~~
$ refit --verbose fit model.cue data.csv
~~~

## Example of a valid model file:
~~~cue
title:   "Prior predictive for RT"
formula: "rt ~ frequency + (frequency | subject)"
family:  "shifted_lognormal"

priors: [
	{class: "b", distribution: "normal(0, 0.5)"},
	{class: "Intercept", distribution: "normal(6, 1)"},
]

sampler: {
	chains:            4
	iter_sampling:     1000
	iter_warmup:       1000
	sample_from_prior: true
}
~~~`,
	}

	datasetNotFoundIssue = &Issue{
		id: DatasetNotFoundId,
		mdMsg: `
# Dataset not found!

The dataset file could not be read.

## Things you can try:
- Check the path for typos
- Datasets are CSV files with a header row:
~~~
subject,frequency,rt
s01,high,412.3
s01,low,534.9
~~~

- Check that every column the formula references is present`,
	}

	corruptCacheIssue = &Issue{
		id: CorruptCacheId,
		mdMsg: `
# Corrupt cache entry!

A cached artifact exists on disk but could not be decoded, or its checksum
does not match its payload.

## Common causes:
- An interrupted write from an older refit version
- Manual edits to files under the cache directory
- Disk corruption

## Things you can try:
- Remove the offending entry and refit will rebuild it:
~~~
$ refit cache rm <name>
~~~

- Inspect the cache directory:
~~~
$ refit cache path
$ refit cache list
~~~`,
	}

	staleCacheIssue = &Issue{
		id: StaleCacheId,
		mdMsg: `
# Stale cache entry!

A cached artifact was found under the requested name, but it was produced
from a different model specification.

## Common causes:
- The model file changed (formula, family, or priors) since the artifact
  was cached
- Two different models share the same artifact name

## Things you can try:
- Remove the stale entry so it gets rebuilt from the current model:
~~~
$ refit cache rm <name>
~~~

- Rename one of the models so their artifacts no longer collide
- To accept whatever is cached under the name, disable verification:
~~~cue
cache: verify_spec: false
~~~`,
	}

	bindIncompatibleIssue = &Issue{
		id: BindIncompatibleId,
		mdMsg: `
# Dataset incompatible with compiled model!

The compiled model was reused from the cache, but the dataset could not be
bound to it.

## Common causes:
- A column the formula references is missing from the dataset
- A grouping variable has a type the compiled model does not accept

## Things you can try:
- Check the dataset header against the model formula
- Force a fresh compilation against this dataset:
~~~cue
pipeline: recompile_on_bind_error: true
~~~

- Or remove the cached compiled model:
~~~
$ refit cache rm <name>
~~~`,
	}

	fitDivergedIssue = &Issue{
		id: FitDivergedId,
		mdMsg: `
# Sampling failed!

The sampler ran but did not produce a usable fit.

## Common causes:
- Divergent transitions (often a sign of a poorly identified model)
- R-hat above 1.01 on key parameters
- Too few warmup iterations

## Things you can try:
- Tighten your priors
- Increase warmup:
~~~cue
sampler: iter_warmup: 2000
~~~

- Reparameterize the model (e.g. non-centered group effects)
- Inspect the sampler output above for the specific diagnostic`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the refit configuration file.

## Configuration file locations:
- Linux: ~/.config/refit/config.cue
- macOS: ~/Library/Application Support/refit/config.cue
- Windows: %APPDATA%\refit\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ refit config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults

## Example configuration:
~~~cue
cache: {
	dir:         "fits"
	verify_spec: true
}

engine: {
	binary: "refit-engine"
	cores:  4
}
~~~`,
	}

	mirrorUnreachableIssue = &Issue{
		id: MirrorUnreachableId,
		mdMsg: `
# Cache mirror unreachable!

Could not connect to the configured object-store mirror.

## Things you can try:
- Check the endpoint and credentials:
~~~cue
mirror: {
	endpoint:   "minio.lab.example.org:9000"
	access_key: "refit"
	secret_key: "..."
	bucket:     "refit-cache"
}
~~~

- Check network connectivity to the endpoint
- The local cache keeps working without the mirror; only push/pull
  are affected`,
	}

	issues = map[Id]*Issue{
		engineNotFoundIssue.Id():      engineNotFoundIssue,
		modelFileNotFoundIssue.Id():   modelFileNotFoundIssue,
		modelFileParseErrorIssue.Id(): modelFileParseErrorIssue,
		datasetNotFoundIssue.Id():     datasetNotFoundIssue,
		corruptCacheIssue.Id():        corruptCacheIssue,
		staleCacheIssue.Id():          staleCacheIssue,
		bindIncompatibleIssue.Id():    bindIncompatibleIssue,
		fitDivergedIssue.Id():         fitDivergedIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		mirrorUnreachableIssue.Id():   mirrorUnreachableIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
