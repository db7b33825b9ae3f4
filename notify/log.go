package notify

import (
	"context"
	"log/slog"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// LogNotifier writes every message to the structured log. Hosts without a bot token use it.
type LogNotifier struct{}

func (LogNotifier) Announce(_ context.Context, chatID game.ChatID, text string, keyboard *game.Keyboard) error {
	slog.Info("announcement", "chatId", chatID, "text", text, "buttons", buttonCount(keyboard))
	return nil
}

func (LogNotifier) DM(_ context.Context, userID game.UserID, text string, keyboard *game.Keyboard) error {
	slog.Debug("direct message", "userId", userID, "text", text, "buttons", buttonCount(keyboard))
	return nil
}

func buttonCount(keyboard *game.Keyboard) int {
	if keyboard == nil {
		return 0
	}

	var count int
	for _, row := range keyboard.Rows {
		count += len(row)
	}
	return count
}
