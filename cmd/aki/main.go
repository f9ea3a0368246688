package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akihq/aki/ai/companion"
	"github.com/akihq/aki/ai/core/llm"
	"github.com/akihq/aki/ai/metrics"
	"github.com/akihq/aki/ai/postprocess"
	"github.com/akihq/aki/ai/timeparse"
	"github.com/akihq/aki/internal/background"
	"github.com/akihq/aki/internal/profile"
	"github.com/akihq/aki/internal/version"
	"github.com/akihq/aki/plugin/chat_apps/channels"
	"github.com/akihq/aki/plugin/chat_apps/channels/telegram"
	"github.com/akihq/aki/server"
	"github.com/akihq/aki/server/service/intent"
	"github.com/akihq/aki/store"
	"github.com/akihq/aki/store/db"
)

var rootCmd = &cobra.Command{
	Use:     "aki",
	Short:   "A personal AI companion that remembers. Bounded context, durable memory, proactive follow-ups.",
	Version: version.String(),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is a dev convenience; under systemd the unit file owns the
		// environment.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:   viper.GetString("driver"),
			DSN:      viper.GetString("dsn"),
			UNIXSock: viper.GetString("unix-sock"),
			Version:  version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		initLogger(instanceProfile)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}

		if !instanceProfile.IsAIEnabled() {
			return fmt.Errorf("no LLM configured: set AKI_LLM_API_KEY (or use the ollama provider)")
		}
		llmService, err := llm.NewService(&llm.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create LLM service: %w", err)
		}

		loc := instanceProfile.Location()
		exporter := metrics.NewExporter()
		resolver := timeparse.NewResolver(loc)
		assembler := companion.NewAssembler(storeInstance, companion.AssemblerConfig{
			SummaryFetchLimit:   instanceProfile.SummaryFetchLimit,
			SummaryDisplayLimit: instanceProfile.SummaryDisplayLimit,
			TailLimit:           instanceProfile.TailLimit,
		}, loc)

		var channel channels.ChatChannel
		if instanceProfile.TelegramBotToken != "" {
			tg, err := telegram.NewChannel(&telegram.Config{BotToken: instanceProfile.TelegramBotToken})
			if err != nil {
				return fmt.Errorf("failed to create telegram channel: %w", err)
			}
			channel = tg
		} else {
			slog.Warn("no telegram bot token configured, proactive delivery is log-only")
		}

		var deliverer intent.Deliverer = &logDeliverer{}
		if channel != nil {
			deliverer = channel
		}
		intents := intent.NewService(storeInstance, llmService, resolver, assembler, deliverer, exporter, loc)

		summarizer := companion.NewSummarizer(llmService, storeInstance, exporter, assembler, loc, instanceProfile.SummaryModel)
		trigger := companion.NewTrigger(storeInstance, summarizer, companion.TriggerConfig{
			CompactInterval: instanceProfile.CompactInterval,
			MemoryInterval:  instanceProfile.MemoryInterval,
		})
		observer := companion.NewObserver(llmService, storeInstance, intents, exporter, loc, instanceProfile.ObservationModel)
		runner := background.NewRunner(2 * time.Minute)

		engine := companion.NewEngine(companion.EngineOptions{
			Store:     storeInstance,
			LLM:       llmService,
			Assembler: assembler,
			Trigger:   trigger,
			Observer:  observer,
			Processor: postprocess.NewProcessor(instanceProfile.AutoSplitThreshold, instanceProfile.MaxChunkLen),
			Reactions: companion.NewReactionController(instanceProfile.ReactionMinTurns, instanceProfile.ReactionMaxTurns),
			Runner:    runner,
			Metrics:   exporter,
			Location:  loc,
		})

		s := server.New(instanceProfile, storeInstance, engine, intents, channel, exporter)

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			slog.Info("shutting down")
			cancel()
		}()

		printGreetings(instanceProfile)
		err = s.Start(ctx)

		// Let detached condensation and observation passes finish.
		runner.Wait()
		return err
	},
}

// logDeliverer stands in for a chat channel when none is configured.
type logDeliverer struct{}

func (*logDeliverer) SendMessages(_ context.Context, platformID string, messages []string) error {
	slog.Info("intent delivery (no channel configured)", "platform_id", platformID, "messages", strings.Join(messages, " | "))
	return nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28080, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("unix-sock", "", "serve HTTP on this unix socket instead of addr:port")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "unix-sock"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("aki")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func initLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Aki %s started successfully!\n", p.Version)
	fmt.Printf("Build: %s\n", version.StringFull())
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Mode: %s\n", p.Mode)
	switch {
	case p.UNIXSock != "":
		fmt.Printf("Server running on %s\n", p.UNIXSock)
	case p.Addr == "":
		fmt.Printf("Server running on port %d\n", p.Port)
	default:
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
