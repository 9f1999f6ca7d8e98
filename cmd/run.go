package cmd

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/hh-notifier/internal/ai"
	"github.com/spigell/hh-notifier/internal/ai/gemini"
	"github.com/spigell/hh-notifier/internal/bot"
	"github.com/spigell/hh-notifier/internal/headhunter"
	"github.com/spigell/hh-notifier/internal/logger"
	"github.com/spigell/hh-notifier/internal/pipeline"
	"github.com/spigell/hh-notifier/internal/scheduler"
	"github.com/spigell/hh-notifier/internal/secrets"
	"github.com/spigell/hh-notifier/internal/store"
	"go.uber.org/zap"
)

const geminiProvider = "gemini"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and the periodic vacancy polling loop",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			panic(err)
		}

		config, err := getConfig()
		if err != nil {
			log.Fatal("can not parse config", zap.Error(err))
		}

		var tokenFile string
		if config.Telegram != nil {
			tokenFile = config.Telegram.TokenFile
		}

		token, err := secrets.Load(secrets.Source{Name: "telegram token", File: tokenFile})
		if err != nil {
			log.Fatal("loading telegram token", zap.Error(err))
		}

		st, err := store.NewSQLite(config.Storage.Path, store.Settings{
			Query:       config.Search.Query,
			MinSalary:   config.Search.MinSalary,
			Experience:  config.Search.Experience,
			Area:        config.Search.Area,
			RemoteOnly:  config.Search.RemoteOnly,
			SearchDepth: config.Search.Depth,
		}, log)
		if err != nil {
			log.Fatal("opening store", zap.Error(err))
		}
		defer st.Close()

		scorer := buildScorer(ctx, config.AI, log)

		tg, err := bot.New(token, log)
		if err != nil {
			log.Fatal("connecting to telegram", zap.Error(err))
		}

		hh := headhunter.New(ctx, log)

		pipelineCfg := pipeline.Config{SendDelay: config.Delivery.Delay}
		if config.AI != nil && config.AI.Enabled {
			pipelineCfg.ScoringEnabled = scorer != nil
			pipelineCfg.MinScore = config.AI.MinScore
		}

		pl, err := pipeline.New(pipeline.NewFetcher(hh, log), st, scorer, tg, pipelineCfg, log)
		if err != nil {
			log.Fatal("creating pipeline", zap.Error(err))
		}

		sched := scheduler.New(st, pl, cronSpec(config.Interval), log)
		if err := sched.Start(ctx); err != nil {
			log.Fatal("starting scheduler", zap.Error(err))
		}

		// Blocks until SIGINT/SIGTERM cancels the context.
		bot.NewHandler(tg, st, pl, log).Run(ctx)

		sched.Stop()
		log.Info("shutdown complete")
	},
}

// buildScorer creates the configured AI scorer. Scoring problems must never
// stop delivery, so a scorer that fails to initialize is logged and dropped.
func buildScorer(ctx context.Context, cfg *AIConfig, log *zap.Logger) ai.Scorer {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if cfg.Provider != "" && cfg.Provider != geminiProvider {
		log.Fatal("unsupported AI provider", zap.String("provider", cfg.Provider))
	}

	gcfg := cfg.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{Name: "gemini api key", File: gcfg.APIKeyFile})
	if err != nil {
		log.Warn("scoring disabled", zap.Error(err))
		return nil
	}

	aiLog := logger.WithCommonFields(log, geminiProvider, gcfg.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, aiLog)
	if err != nil {
		log.Warn("scoring disabled", zap.Error(err))
		return nil
	}

	return gemini.NewScorer(generator, gcfg.MaxLogLength, aiLog)
}

// cronSpec accepts either a plain interval ("10m") or a full cron
// expression and normalizes it for robfig/cron.
func cronSpec(interval string) string {
	interval = strings.TrimSpace(interval)
	if strings.HasPrefix(interval, "@") || strings.Contains(interval, " ") {
		return interval
	}

	return "@every " + interval
}

func init() {
	rootCmd.AddCommand(runCmd)
}
