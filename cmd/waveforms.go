package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/wavering/internal/app"
	"github.com/smazurov/wavering/internal/mailer"
	"github.com/smazurov/wavering/internal/publish"
)

// CreateWaveformsCmd creates the waveforms command.
func CreateWaveformsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "waveforms",
		Short: "List saved waveforms, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := app.OpenStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := publish.NewService(st, mailer.Disabled{}).List(ctx)
			if err != nil {
				return err
			}
			return printWaveforms(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "wavering.db", "SQLite database path")
	return cmd
}

func printWaveforms(w io.Writer, records []publish.WaveformRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No saved waveforms.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tEMAIL\tIMAGE")
	for _, r := range records {
		email := "-"
		if r.Email != nil {
			email = *r.Email
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d bytes\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), email, len(r.ImageData))
	}
	return tw.Flush()
}
