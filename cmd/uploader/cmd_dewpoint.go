package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-uploader/internal/conversions"
)

func newDewpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dewpoint <temperature_c> <humidity_pct>",
		Short: "Print the dew point the uploader reports for a reading",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tempC, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("temperature: %w", err)
			}
			humidity, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("humidity: %w", err)
			}
			if humidity <= 0 || humidity > 100 {
				return fmt.Errorf("humidity must be in (0, 100], got %g", humidity)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", conversions.DewpointF(tempC, humidity))
			return nil
		},
	}
}
