package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heyharoon/vpo/pkg/config"
)

// scenesCommand creates the scenes command.
func (c *CLI) scenesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List configured scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(scenesTable(cfg))
			return nil
		},
	}
}

// scenesTable renders one row per scene.
func scenesTable(cfg *config.Config) string {
	t := newTable("Scene", "Title", "Frames", "Skip", "Mode", "Interpolation", "Source")
	for _, s := range cfg.Scenes {
		spec := s.Spec()
		frames := strconv.Itoa(spec.Count())
		if spec.Count() != spec.VirtualCount() {
			frames = fmt.Sprintf("%d of %d", spec.Count(), spec.VirtualCount())
		}
		t.Row(s.Name, s.DisplayTitle(), frames, strconv.Itoa(spec.Skip), s.Mode.String(), s.Interpolation.String(), spec.URL(spec.First))
	}
	return t.Render()
}
