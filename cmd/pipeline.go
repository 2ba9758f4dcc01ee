package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/render"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Show the analysis stages and their settings",
	Run: func(cmd *cobra.Command, _ []string) {
		env := setup(context.Background())
		defer env.close()

		statuses := env.analyzer().Describe()

		if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
			fmt.Fprintln(cmd.OutOrStdout(), render.Pipeline(statuses, render.DefaultStyles()))
			return
		}

		out, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			env.logger.Fatal("encoding stages", zap.Error(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().BoolP("pretty", "p", false, "print a table instead of JSON")
}
