package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jarvis/internal/tools"
)

func newToolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the actions the assistant can take",
		RunE: func(cmd *cobra.Command, _ []string) error {
			declarations := tools.Declarations()
			if asJSON {
				payload, err := json.MarshalIndent(declarations, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, decl := range declarations {
				fmt.Fprintf(w, "%s\t%s\n", decl.Name, decl.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print function declarations as JSON")
	return cmd
}
