package cmd

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/redliningmap/internal/client"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Manage pins on the shared map",
}

var pinsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every user's pins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pins, err := newPinService().AllPins(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list pins: %w", err)
		}
		printPins(cmd.OutOrStdout(), pins)
		return nil
	},
}

var pinsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Drop a pin for the current user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")

		pin, err := newPinService().AddPin(cmd.Context(), viper.GetString("user_id"), lat, lng)
		if err != nil {
			return fmt.Errorf("failed to add pin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s at %.6f,%.6f\n", pin.ID, pin.Latitude, pin.Longitude)
		return nil
	},
}

var pinsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every pin of the current user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := viper.GetString("user_id")
		if err := newPinService().ClearUserPins(cmd.Context(), userID); err != nil {
			return fmt.Errorf("failed to clear pins: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared pins of %s\n", userID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pinsCmd)
	pinsCmd.AddCommand(pinsListCmd, pinsAddCmd, pinsClearCmd)

	pinsCmd.PersistentFlags().String("user", "", "Signed-in user id")
	if err := viper.BindPFlag("user_id", pinsCmd.PersistentFlags().Lookup("user")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}

	pinsAddCmd.Flags().Float64("lat", 0, "Pin latitude")
	pinsAddCmd.Flags().Float64("lng", 0, "Pin longitude")
	_ = pinsAddCmd.MarkFlagRequired("lat")
	_ = pinsAddCmd.MarkFlagRequired("lng")
}

func newPinService() *client.PinService {
	if logger == nil {
		initLogging()
	}
	return client.NewPinService(client.NewBackend(viper.GetString("backend_url"), client.WithLogger(logger)))
}

func printPins(w io.Writer, pins []types.Pin) {
	if len(pins) == 0 {
		fmt.Fprintln(w, "no pins")
		return
	}
	for _, p := range pins {
		fmt.Fprintf(w, "%-44s %-16s %11.6f %11.6f  %s\n",
			p.ID, p.UserID, p.Latitude, p.Longitude, p.Time().UTC().Format("2006-01-02 15:04:05"))
	}
}
