// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"refit/internal/store"

	"github.com/spf13/cobra"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the artifact cache",
	}

	cacheListCmd = &cobra.Command{
		Use:   "list",
		Short: "List cached artifacts",
		RunE:  runCacheList,
	}

	cacheRmCmd = &cobra.Command{
		Use:   "rm <name>...",
		Short: "Remove cached artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCacheRm,
	}

	cachePathCmd = &cobra.Command{
		Use:   "path [name]",
		Short: "Print the cache directory, or the path of one artifact",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCachePath,
	}
)

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheRmCmd)
	cacheCmd.AddCommand(cachePathCmd)
}

func runCacheList(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()
	s := app.openStore(app.loadConfig(ctx))
	out := cobraCmd.OutOrStdout()

	names, err := s.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("cache is empty: ")+VerboseStyle.Render(s.Root()))
		return nil
	}

	fmt.Fprintf(out, "%-28s %-10s %-14s %8s  %s\n", "NAME", "KIND", "MODEL KEY", "ROWS", "CREATED")
	for _, name := range names {
		art, err := s.Load(name)
		if err != nil {
			// A corrupt entry is still listed so the operator can rm it.
			fmt.Fprintf(out, "%-28s %s\n", name, ErrorStyle.Render("corrupt: "+err.Error()))
			continue
		}

		rows := "-"
		if art.Kind == store.KindFit {
			rows = fmt.Sprintf("%d", art.DatasetRows)
		}
		fmt.Fprintf(out, "%-28s %-10s %-14.12s %8s  %s\n",
			name, art.Kind, art.SpecKey, rows, art.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runCacheRm(cobraCmd *cobra.Command, args []string) error {
	ctx := cobraCmd.Context()
	s := app.openStore(app.loadConfig(ctx))
	out := cobraCmd.OutOrStdout()

	for _, name := range args {
		if err := s.Remove(name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(out, WarningStyle.Render("not cached: ")+name)
				continue
			}
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("removed ")+ParamStyle.Render(name))
	}
	return nil
}

func runCachePath(cobraCmd *cobra.Command, args []string) error {
	ctx := cobraCmd.Context()
	s := app.openStore(app.loadConfig(ctx))
	out := cobraCmd.OutOrStdout()

	if len(args) == 0 {
		fmt.Fprintln(out, s.Root())
		return nil
	}
	fmt.Fprintln(out, s.Path(args[0]))
	return nil
}
