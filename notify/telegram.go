// Package notify delivers game announcements and direct messages to players and spectators.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// MessageSender is the part of *tgbotapi.BotAPI the notifier needs.
type MessageSender interface {
	Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts announcements to the game chat and DMs players through a bot.
type TelegramNotifier struct {
	sender MessageSender
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	slog.Info("telegram bot authorized", "username", bot.Self.UserName)
	return NewTelegramNotifierWithSender(bot), nil
}

func NewTelegramNotifierWithSender(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

func (t *TelegramNotifier) Announce(_ context.Context, chatID game.ChatID, text string, keyboard *game.Keyboard) error {
	return t.send(int64(chatID), text, keyboard)
}

// DM relies on a user's private chat ID being their user ID.
func (t *TelegramNotifier) DM(_ context.Context, userID game.UserID, text string, keyboard *game.Keyboard) error {
	return t.send(int64(userID), text, keyboard)
}

func (t *TelegramNotifier) send(chatID int64, text string, keyboard *game.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup, hasMarkup := inlineKeyboard(keyboard); hasMarkup {
		msg.ReplyMarkup = markup
	}

	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message to %d: %w", chatID, err)
	}
	return nil
}

func inlineKeyboard(keyboard *game.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	if keyboard == nil || len(keyboard.Rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard.Rows))
	for _, row := range keyboard.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
