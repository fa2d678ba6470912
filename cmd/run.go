package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rtmbot/pkg/bot"
	"rtmbot/pkg/config"
	"rtmbot/pkg/gateway"
	"rtmbot/pkg/logger"
	"rtmbot/pkg/rtm"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	envFile string
	botName string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the workspace and run a bot",
	Long: `Exchanges the bot token for a session, opens the real-time socket and runs
the selected bot until the socket closes or the process is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args
		return runBot(cmd.Context(), envFile, botName)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file to load before reading config")
	runCmd.Flags().StringVar(&botName, "bot", "", "bot to run ("+strings.Join(bot.Names(), ", ")+")")
}

// loadRuntime reads env file, config and logger shared by every command.
func loadRuntime(envPath string) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envPath); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging, logger.WithSecrets(cfg.Slack.Token, os.Getenv("OPENAI_API_KEY")))
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	return cfg, appLogger, nil
}

func runBot(ctx context.Context, envPath string, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, appLogger, err := loadRuntime(envPath)
	if err != nil {
		return err
	}
	log := appLogger.With("component", "cmd.run")

	credential, err := cfg.Credential()
	if err != nil {
		return err
	}

	if value := strings.TrimSpace(name); value != "" {
		cfg.Bot.Name = value
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := bot.New(runCtx, cfg.Bot.Name, cfg, appLogger)
	if err != nil {
		return err
	}

	session, err := rtm.Open(runCtx, credential, factory, sessionOptions(cfg, appLogger)...)
	if err != nil {
		log.Error("Handshake failed", "error", err)
		return err
	}

	svc, err := gateway.NewService(cfg.Gateway, session, appLogger)
	if err != nil {
		return err
	}

	log.Info("Bot started", "bot", cfg.Bot.Name, "session_id", session.ID(), "status_server", cfg.Gateway.Enabled)
	if err := svc.Run(runCtx); err != nil {
		log.Error("Bot stopped with error", "error", err)
		return err
	}

	log.Info("Bot stopped", "session_id", session.ID())
	return nil
}

func sessionOptions(cfg *config.Config, log *slog.Logger) []rtm.Option {
	opts := []rtm.Option{
		rtm.WithAPIBaseURL(cfg.Slack.APIBaseURL),
		rtm.WithLogger(log),
	}

	if cfg.Slack.DialTimeoutSeconds > 0 {
		opts = append(opts, rtm.WithDialer(&websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: time.Duration(cfg.Slack.DialTimeoutSeconds) * time.Second,
		}))
	}

	return opts
}
