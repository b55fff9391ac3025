package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ronappleton/studioflow/internal/workflow"
)

func newTemplatesCommand() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Print the built-in template catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := workflow.DefaultTemplates()
			if key != "" {
				tpl, ok := workflow.DefaultTemplate(workflow.TemplateKey(key))
				if !ok {
					return &workflow.UnknownTemplateKindError{Key: key}
				}
				templates = []workflow.Template{tpl}
			}
			return workflow.EncodeTemplatesYAML(cmd.OutOrStdout(), templates)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Only print the template with this key")
	return cmd
}

func newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <session-type>",
		Short: "Show which built-in template a session type maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := workflow.ResolveTemplateForSessionType(args[0])
			tpl, ok := workflow.DefaultTemplate(key)
			if !ok {
				return &workflow.UnknownTemplateKindError{Key: string(key)}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d steps\n", key, tpl.Name, len(tpl.Steps))
			return err
		},
	}
}
