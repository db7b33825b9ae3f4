package notify

import (
	"context"
	"errors"

	"github.com/jrh3k5/forest-and-wolves/game"
)

// MultiNotifier fans every message out to each notifier, attempting all of them.
type MultiNotifier []game.Notifier

func (m MultiNotifier) Announce(ctx context.Context, chatID game.ChatID, text string, keyboard *game.Keyboard) error {
	var errs []error
	for _, notifier := range m {
		errs = append(errs, notifier.Announce(ctx, chatID, text, keyboard))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) DM(ctx context.Context, userID game.UserID, text string, keyboard *game.Keyboard) error {
	var errs []error
	for _, notifier := range m {
		errs = append(errs, notifier.DM(ctx, userID, text, keyboard))
	}
	return errors.Join(errs...)
}
