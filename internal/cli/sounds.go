package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/audio"
	"github.com/smokyabdulrahman/uyan/internal/display"
)

func newSoundsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sounds",
		Short: "List alert sounds",
		Long:  "List the selectable alert sounds. The selected one is marked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSettings(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			selected := store.SoundID()
			t := display.NewTable([]string{"ID", display.Upper("Ses"), display.Upper("Dosya")})
			for _, s := range audio.Catalog {
				if s.ID == selected {
					t.AddStyledRow([]string{s.ID, s.Name, s.File}, display.RowHighlight)
					continue
				}
				t.AddRow([]string{s.ID, s.Name, s.File})
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), t.Render())
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Select the alert sound",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := audio.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown sound %q; run 'uyan sounds' for the list", args[0])
			}
			store, err := a.openSettings(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetSound(cmd.Context(), s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert sound set to %s (%s)\n", s.ID, s.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "play [id]",
		Short: "Preview a sound (default: the selected one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.cfg.Sound
			if len(args) == 1 {
				id = args[0]
			} else if store, err := a.openSettings(cmd.Context()); err == nil {
				id = store.SoundID()
				store.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			player := audio.NewPlayer(a.cfg.SoundsDir)
			defer player.Stop()
			if err := player.PlayOneShot(ctx, id); err != nil {
				return err
			}
			if done := player.Done(); done != nil {
				select {
				case <-done:
				case <-ctx.Done():
				}
			}
			return nil
		},
	})

	return cmd
}
