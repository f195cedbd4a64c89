// Command sechatd runs a chat bot from a YAML configuration file. It is a
// thin harness: real deployments embed the bot package and register their
// own listeners; sechatd only wires config, signals and a minimal command
// listener so the plumbing can be exercised end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/bot"
	"github.com/luciancaetano/sechat/internal/logger"
)

func main() {
	configPath := flag.String("config", "sechat.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "sechatd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Optional; credentials usually arrive via SECHAT_EMAIL/SECHAT_PASSWORD.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := bot.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.InitWithLevel(cfg.Logging.Level)

	b, err := bot.New(cfg, bot.WithListener(sechat.ListenerFunc(baseCommands)))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return b.Run(ctx)
}

// baseCommands answers the ping and shutdown commands every deployment
// wants.
func baseCommands(msg *sechat.ChatMessage, b sechat.Bot) []sechat.Action {
	text := strings.TrimSpace(msg.Content.Text)
	if !strings.HasPrefix(text, b.Trigger()) {
		return nil
	}
	switch strings.TrimPrefix(text, b.Trigger()) {
	case "ping":
		return []sechat.Action{sechat.PostMessage{RoomID: msg.RoomID, Text: "pong"}}
	case "die":
		if !b.IsAdmin(msg.UserID) {
			return nil
		}
		return []sechat.Action{sechat.Shutdown{Farewell: "shutting down"}}
	}
	return nil
}
