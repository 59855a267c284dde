package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"turnflow/config"
	"turnflow/internal/logging"
	"turnflow/internal/wiring"
	"turnflow/turn"
)

var chatFlags struct {
	actorID   string
	sessionID string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive turn-by-turn chat on the terminal",
	RunE:  runChat,
}

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatFlags.actorID, "actor-id", "", "actor identity for persistence scoping")
	f.StringVar(&chatFlags.sessionID, "session-id", "", "session identity for persistence scoping")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New("chat")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := wiring.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sessionID := chatFlags.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s; enabled capabilities: %s\n",
		sessionID, formatKinds(runtime.Registry.EnabledKinds()))
	fmt.Fprintln(out, `type a message, or "exit" to quit`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		_, err := runtime.Orchestrator.Execute(ctx, turn.Request{
			ActorID:   chatFlags.actorID,
			ThreadID:  sessionID,
			InputText: input,
		}, func(_ context.Context, fragment string) error {
			_, writeErr := fmt.Fprint(out, fragment)
			return writeErr
		})
		fmt.Fprintln(out)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("turn failed", "error", err)
		}
	}
}

func formatKinds(kinds []turn.Kind) string {
	if len(kinds) == 0 {
		return "none"
	}
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
	}
	return strings.Join(names, ", ")
}
