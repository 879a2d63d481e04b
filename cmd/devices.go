package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/wavering/internal/audio"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var procRoot string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List ALSA capture devices",
		Long:  `Reads /proc/asound and lists every capture PCM with the ALSA name to pass as --capture-device.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			detector := audio.NewDetector()
			if procRoot != "" {
				detector.ProcRoot = procRoot
			}
			return printDevices(cmd.OutOrStdout(), detector)
		},
	}
	cmd.Flags().StringVar(&procRoot, "proc-root", "", "Override the /proc/asound directory")
	return cmd
}

func printDevices(w io.Writer, detector audio.Detector) error {
	devs, err := detector.ListDevices()
	if err != nil {
		return fmt.Errorf("listing capture devices: %w", err)
	}
	if len(devs) == 0 {
		fmt.Fprintln(w, "No ALSA capture devices found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d capture devices:\n", len(devs))
	for i, dev := range devs {
		fmt.Fprintf(w, "%d. %s  %s: %s\n", i+1, dev.ALSADevice, dev.CardName, dev.DeviceName)
		fmt.Fprintf(w, "   Path: %s\n", dev.Path)
		if dev.Accessible {
			fmt.Fprintln(w, "   Accessible: yes")
		} else {
			fmt.Fprintf(w, "   Accessible: no (%s)\n", dev.Error)
		}
	}
	return nil
}
