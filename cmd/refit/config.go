// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"refit/internal/config"
	"refit/internal/issue"

	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage refit configuration",
		Long: `Manage refit configuration.

Configuration is stored in:
  - Linux: ~/.config/refit/config.cue
  - macOS: ~/Library/Application Support/refit/config.cue
  - Windows: %APPDATA%\refit\config.cue`,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return cobraCmd.Help()
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE:  runConfigInit,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE:  runConfigPath,
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE:  runConfigDump,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigShow(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()
	out := cobraCmd.OutOrStdout()

	cfg, err := app.Config.Load(ctx, config.LoadOptions{})
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	keyStyle := ParamStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	if path := app.Config.ResolvedPath(); path != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s:\n", keyStyle.Render("cache"))
	fmt.Fprintf(out, "  dir: %s\n", valueStyle.Render(cfg.Cache.Dir))
	fmt.Fprintf(out, "  verify_spec: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Cache.VerifySpec)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("engine"))
	fmt.Fprintf(out, "  binary: %s\n", valueStyle.Render(cfg.Engine.Binary))
	fmt.Fprintf(out, "  cores: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Engine.Cores)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("pipeline"))
	fmt.Fprintf(out, "  recompile_on_bind_error: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Pipeline.RecompileOnBindError)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("mirror"))
	if !cfg.Mirror.Enabled() {
		fmt.Fprintf(out, "  %s\n", SubtitleStyle.Render("(not configured)"))
	} else {
		fmt.Fprintf(out, "  endpoint: %s\n", valueStyle.Render(cfg.Mirror.Endpoint))
		fmt.Fprintf(out, "  bucket: %s\n", valueStyle.Render(cfg.Mirror.Bucket))
		fmt.Fprintf(out, "  region: %s\n", valueStyle.Render(cfg.Mirror.Region))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func runConfigInit(cobraCmd *cobra.Command, _ []string) error {
	path, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "%s Created default configuration at %s\n",
		SuccessStyle.Render("✓"), path)
	return nil
}

func runConfigPath(cobraCmd *cobra.Command, _ []string) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	out := cobraCmd.OutOrStdout()
	fmt.Fprintf(out, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(out, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func runConfigDump(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := app.Config.Load(cobraCmd.Context(), config.LoadOptions{})
	if err != nil {
		return err
	}

	fmt.Fprint(cobraCmd.OutOrStdout(), config.GenerateCUE(cfg))
	return nil
}
