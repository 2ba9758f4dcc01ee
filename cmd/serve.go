package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/question-analyzer/internal/analysis"
	"github.com/spigell/question-analyzer/internal/lexicon"
	"github.com/spigell/question-analyzer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analyzer over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	serveCmd.Flags().Bool("watch-lexicon", false, "reload the lexicon file when it changes")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.watch-lexicon", serveCmd.Flags().Lookup("watch-lexicon"))
}

func runServe() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := setup(ctx)
	defer env.close()

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := server.NewMetrics()
	observe := analysis.WithStageObserver(metrics.ObserveStage)

	opts := []server.Option{server.WithMetrics(metrics)}
	if p := env.backends.pinger(); p != nil {
		opts = append(opts, server.WithCachePinger(p))
	}

	srv, err := server.New(*env.config.Server, env.analyzer(observe), env.logger, opts...)
	if err != nil {
		env.logger.Fatal("creating server", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if env.config.Server.WatchLexicon {
		if env.config.LexiconFile == "" {
			env.logger.Warn("lexicon watch requested without lexicon-file, ignoring")
		} else {
			g.Go(func() error {
				return lexicon.Watch(gctx, env.config.LexiconFile, env.logger, func(l *lexicon.Lexicon) {
					a, err := env.backends.analyzer(l, observe)
					if err != nil {
						env.logger.Warn("rebuilding analyzer failed, keeping previous one", zap.Error(err))
						return
					}
					srv.SetAnalyzer(a)
				})
			})
		}
	}

	if err := g.Wait(); err != nil {
		env.logger.Fatal("server failed", zap.Error(err))
	}
}
