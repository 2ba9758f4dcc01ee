package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/question-analyzer/internal/ai"
	"github.com/spigell/question-analyzer/internal/analysis"
)

const (
	commandExit  = "exit"
	commandQuit  = "quit"
	commandReset = "reset"
)

var errExit = errors.New("exit requested")

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Analyze questions one by one, keeping the conversation context",
	Run: func(cmd *cobra.Command, _ []string) {
		runInteractive(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)

	interactiveCmd.Flags().BoolP("pretty", "p", true, "print a styled summary instead of JSON")
}

func runInteractive(cmd *cobra.Command) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	session := analysis.NewSession(env.analyzer())
	pretty, _ := cmd.Flags().GetBool("pretty")

	prompt := promptui.Prompt{
		Label: "Question (reset, exit)",
	}

	for {
		line, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			env.logger.Fatal("reading question", zap.Error(err))
		}

		if err := handleLine(ctx, session, line, func(r *analysis.Result) error {
			return printResult(cmd.OutOrStdout(), r, pretty)
		}); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			if errors.Is(err, ai.ErrEmptyText) {
				continue
			}
			env.logger.Error("analyzing question", zap.Error(err))
		}
	}
}

// handleLine runs one interactive command or analyzes line within session.
func handleLine(ctx context.Context, session *analysis.Session, line string, print func(*analysis.Result) error) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case commandExit, commandQuit:
		return errExit
	case commandReset:
		session.Reset()
		return nil
	}

	result, err := session.Analyze(ctx, line)
	if err != nil {
		return err
	}
	return print(result)
}
