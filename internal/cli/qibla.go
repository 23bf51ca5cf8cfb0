package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/display"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/qibla"
)

// placeName is a variable so tests never touch the network.
var placeName = geo.PlaceName

type qiblaJSON struct {
	Place     string  `json:"place,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bearing   float64 `json:"bearing"`
	Compass   string  `json:"compass"`
}

func newQiblaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "qibla",
		Short: "Show the qibla direction",
		Long:  "Print the initial great-circle bearing from your location to the Kaaba,\nin degrees clockwise from true north.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, closer := openStore(ctx, a.cfg)
			defer closer.Close()
			place, err := resolvePlace(ctx, a.cfg, store)
			if err != nil {
				return err
			}
			if place.City != "" {
				return errors.New("qibla needs coordinates: set latitude and longitude instead of city")
			}

			c := place.Coordinate
			out := qiblaJSON{Latitude: c.Lat, Longitude: c.Lon}
			out.Bearing = qibla.Bearing(c.Lat, c.Lon)
			out.Compass = qibla.CompassPoint(out.Bearing)

			if name, err := placeName(ctx, c); err == nil {
				out.Place = name
			} else {
				logger := logging.GetLogger("cli")
				logger.Debug().Err(err).Msg("Reverse geocoding failed")
			}

			w := cmd.OutOrStdout()
			if a.json {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Fprintln(w, string(data))
				return nil
			}

			fmt.Fprintln(w)
			if out.Place != "" {
				fmt.Fprintf(w, "  %s\n", out.Place)
			}
			fmt.Fprintf(w, "  %.4f, %.4f\n", c.Lat, c.Lon)
			fmt.Fprintf(w, "  Kıble yönü: %s (%s)\n", display.Boldf("%.1f°", out.Bearing), out.Compass)
			fmt.Fprintln(w)
			return nil
		},
	}
}
