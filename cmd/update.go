package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/wavering/internal/updater"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		opts       updater.Options
		checkOnly  bool
		rollback   bool
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update wavering to the latest release",
		Long: `Downloads the latest GitHub release and replaces the running binary, keeping ` +
			`a backup of the current one. Restart the service afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := updater.New(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
			defer cancel()
			return runUpdate(ctx, cmd.OutOrStdout(), u, checkOnly, rollback)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Repository, "repo", updater.DefaultRepository, "GitHub repository to update from")
	f.BoolVar(&opts.Prerelease, "prerelease", false, "Include prereleases")
	f.BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	f.BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	f.IntVar(&timeoutSec, "timeout", 120, "Timeout in seconds")
	return cmd
}

type releaseUpdater interface {
	Check(ctx context.Context) (*updater.Info, error)
	Apply(ctx context.Context) (*updater.Info, error)
	Rollback() (string, error)
}

func runUpdate(ctx context.Context, w io.Writer, u releaseUpdater, checkOnly, rollback bool) error {
	switch {
	case rollback:
		ver, err := u.Rollback()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Restored wavering %s. Restart the service to use it.\n", ver)
		return nil

	case checkOnly:
		info, err := u.Check(ctx)
		if err != nil {
			return err
		}
		if info.UpdateAvailable {
			fmt.Fprintf(w, "Update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if info.ReleaseURL != "" {
				fmt.Fprintf(w, "  %s\n", info.ReleaseURL)
			}
		} else {
			fmt.Fprintf(w, "wavering %s is up to date\n", info.CurrentVersion)
		}
		return nil
	}

	info, err := u.Apply(ctx)
	var ue *updater.Error
	if errors.As(err, &ue) && ue.Code == updater.ErrCodeNoUpdate {
		fmt.Fprintf(w, "wavering %s is up to date\n", info.CurrentVersion)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Updated %s -> %s. Restart the service to use it.\n", info.CurrentVersion, info.LatestVersion)
	return nil
}
