// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"refit/internal/issue"

	"github.com/spf13/cobra"
)

var (
	mirrorCmd = &cobra.Command{
		Use:   "mirror",
		Short: "Share cached artifacts through an object-store mirror",
		Long: `Share cached artifacts through an S3-compatible object store.

Push uploads every local artifact to the configured bucket. Pull
downloads artifacts that are missing locally; existing local artifacts
are never overwritten. Configure the mirror in the config file:

  mirror: {
      endpoint:   "minio.lab.example.org:9000"
      access_key: "refit"
      secret_key: "..."
      bucket:     "refit-cache"
  }`,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return cobraCmd.Help()
		},
	}

	mirrorPushCmd = &cobra.Command{
		Use:   "push",
		Short: "Upload cached artifacts to the mirror",
		RunE:  runMirrorPush,
	}

	mirrorPullCmd = &cobra.Command{
		Use:   "pull",
		Short: "Download missing artifacts from the mirror",
		RunE:  runMirrorPull,
	}
)

func init() {
	mirrorCmd.AddCommand(mirrorPushCmd)
	mirrorCmd.AddCommand(mirrorPullCmd)
}

func runMirrorPush(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()

	m, err := app.newMirror(app.loadConfig(ctx))
	if err != nil {
		return err
	}

	pushed, err := m.Push(ctx)
	if err != nil {
		renderMirrorIssue()
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "%s Pushed %d artifact(s)\n", SuccessStyle.Render("✓"), pushed)
	return nil
}

func runMirrorPull(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()

	m, err := app.newMirror(app.loadConfig(ctx))
	if err != nil {
		return err
	}

	pulled, err := m.Pull(ctx)
	if err != nil {
		renderMirrorIssue()
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "%s Pulled %d artifact(s)\n", SuccessStyle.Render("✓"), pulled)
	return nil
}

func renderMirrorIssue() {
	rendered, renderErr := issue.Get(issue.MirrorUnreachableId).Render("dark")
	if renderErr == nil {
		fmt.Fprint(os.Stderr, rendered)
	}
}
