package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/display"
)

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"alerts"},
		Short:   "List which prayers raise an alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSettings(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			snap := store.Snapshot()
			t := display.NewTable([]string{display.Upper("Vakit"), display.Upper("Bildirim")})
			for _, key := range snap.Keys() {
				if snap.Enabled[key] {
					t.AddStyledRow([]string{key, "açık"}, display.RowHighlight)
				} else {
					t.AddStyledRow([]string{key, "kapalı"}, display.RowMuted)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), t.Render())
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <label>",
		Short: "Turn the alert for a prayer on or off",
		Long:  "Flip the alert for a display label such as \"Güneş\" or \"İftar\", or a\ncanonical name such as \"Sunrise\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSettings(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			on, err := store.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := display.Red("kapalı")
			if on {
				state = display.Green("açık")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
			return nil
		},
	})

	return cmd
}
