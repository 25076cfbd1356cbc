package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/tapioca/version"
)

func newVersionCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			format, err := resolveFormat(global.output, out)
			if err != nil {
				return err
			}
			info := version.Get()
			if format != formatTable {
				return render(out, format, info)
			}
			pairs := map[string]string{
				"Version":  info.Version,
				"Commit":   info.GitCommit,
				"Go":       info.GoVersion,
				"Platform": info.Platform,
				"Release":  strconv.FormatBool(info.IsRelease),
			}
			if !info.BuildDate.IsZero() {
				pairs["Built"] = info.BuildDate.UTC().Format("2006-01-02T15:04:05Z")
			}
			return renderPairs(out, pairs)
		},
	}
}
