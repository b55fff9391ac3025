package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree. Running the root without a
// subcommand is the same as serve.
func NewRootCommand(serve func(configPath string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "studioflow",
		Short:         "Photography studio workflow service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().String("config", "config.yaml", "Path to config file")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serve(configPath(cmd))
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and gRPC servers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(configPath(cmd))
			},
		},
		newTemplatesCommand(),
		newResolveCommand(),
		newExportCommand(),
	)
	return cmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
