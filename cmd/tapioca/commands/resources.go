package commands

import (
	"github.com/spf13/cobra"
)

func newResourcesCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources defined in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			format, err := resolveFormat(global.output, out)
			if err != nil {
				return err
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if format == formatTable {
				return renderPairs(out, cfg.Resources)
			}
			return render(out, format, cfg.Resources)
		},
	}
}
