package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Analyze a transcript given as arguments, a file or stdin (-)",
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyze(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("file", "f", "", "read the transcript from a file")
	analyzeCmd.Flags().BoolP("pretty", "p", false, "print a styled summary instead of JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	file, _ := cmd.Flags().GetString("file")
	transcript, err := readTranscript(args, file, cmd.InOrStdin())
	if err != nil {
		env.logger.Fatal("reading transcript", zap.Error(err))
	}

	result, err := env.analyzer().Analyze(ctx, transcript)
	if err != nil {
		env.logger.Fatal("analyzing transcript", zap.Error(err))
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	if err := printResult(cmd.OutOrStdout(), result, pretty); err != nil {
		env.logger.Fatal("printing result", zap.Error(err))
	}
}

// readTranscript takes the transcript from file, from in when the only
// argument is "-", or from the joined arguments.
func readTranscript(args []string, file string, in io.Reader) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("either arguments or --file can be used, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %q: %w", file, err)
		}
		return string(data), nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case len(args) == 0:
		return "", errors.New("no transcript given")
	default:
		return strings.Join(args, " "), nil
	}
}

func printResult(w io.Writer, result *analysis.Result, pretty bool) error {
	if pretty {
		_, err := fmt.Fprintln(w, render.Result(result, render.DefaultStyles()))
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
