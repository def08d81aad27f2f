package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yingyang9416/RestAPICaller/internal/config"
	"github.com/yingyang9416/RestAPICaller/internal/output"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog file without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			noColor, _ := cmd.Flags().GetBool("no-color")
			noColor = !output.UseColor(cmd.OutOrStdout(), noColor)
			out := cmd.OutOrStdout()

			catalog, err := config.LoadCatalog(path)
			if err != nil {
				return err
			}

			problems := config.ValidateCatalog(catalog)
			if len(problems) > 0 {
				fmt.Fprintf(out, "%s %s: %d problem(s)\n", output.ErrorIcon(noColor), path, len(problems))
				for _, p := range problems {
					fmt.Fprintf(out, "  - %s\n", p.Error())
				}
				return ErrFailed
			}

			fmt.Fprintf(out, "%s %s: %d environment(s), %d request(s), %d schema(s)\n",
				output.SuccessIcon(noColor), path,
				len(catalog.Environments), len(catalog.Requests), len(catalog.Schemas))
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "Catalog file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
