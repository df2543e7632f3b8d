// Package telegram connects the setup wizard to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-logr/logr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/wizard"
)

// queueSize bounds the updates buffered per worker.
const queueSize = 16

// API is the subset of *tgbotapi.BotAPI used by the bot.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot routes Telegram updates to the wizard and sends its replies.
type Bot struct {
	API     API
	Wizard  *wizard.Wizard
	Log     logr.Logger
	Workers int

	running atomic.Bool
}

// Run consumes updates until ctx is cancelled or updates is closed. Updates
// are sharded by user id over Workers goroutines, so each user's events are
// handled in order while different users proceed in parallel.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	n := b.Workers
	if n <= 0 {
		n = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	queues := make([]chan tgbotapi.Update, n)
	for i := range queues {
		q := make(chan tgbotapi.Update, queueSize)
		queues[i] = q
		g.Go(func() error {
			for u := range q {
				b.HandleUpdate(ctx, u)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case u, ok := <-updates:
				if !ok {
					return nil
				}
				select {
				case queues[shard(senderID(u), n)] <- u:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})

	b.running.Store(true)
	defer b.running.Store(false)
	b.Log.Info("receiving updates", "workers", n)
	return g.Wait()
}

// Ready is a health check reporting whether Run is consuming updates.
func (b *Bot) Ready(_ *http.Request) error {
	if !b.running.Load() {
		return errors.New("update loop not running")
	}
	return nil
}

func shard(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

func senderID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	default:
		return 0
	}
}

// HandleUpdate processes a single update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil || m.Text == "" {
		return
	}
	user := m.From.ID

	var reply wizard.Reply
	if m.IsCommand() {
		cmd := m.Command()
		b.Log.V(1).Info("command received", "user", user, "command", cmd)
		switch cmd {
		case "start":
			reply = b.Wizard.Welcome(m.From.FirstName)
		case "help":
			reply = b.Wizard.Help()
		case "setup":
			reply = b.Wizard.Start(user)
		case "list":
			reply = b.Wizard.List()
		case "delete":
			reply = b.Wizard.Delete()
		case "cancel":
			reply = b.Wizard.Cancel(user)
		default:
			reply = b.Wizard.UnknownCommand()
		}
	} else {
		r, ok := b.Wizard.HandleText(ctx, user, m.Text)
		if !ok {
			return
		}
		reply = r
	}
	b.send(m.Chat.ID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.API.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.Log.Error(err, "answering callback query failed", "query", q.ID)
	}
	if q.From == nil {
		return
	}

	reply := b.Wizard.HandleChoice(ctx, q.From.ID, q.Data)

	// Replace the confirmation prompt. Its buttons are dropped unless the
	// reply asks for them again.
	if q.Message != nil && q.Message.Chat != nil {
		edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, reply.Text)
		if len(reply.Choices) > 0 {
			markup := keyboard(reply.Choices)
			edit.ReplyMarkup = &markup
		}
		_, err := b.API.Send(edit)
		if err == nil {
			return
		}
		b.Log.Error(err, "editing confirmation message failed, sending a new one", "user", q.From.ID)
	}
	b.send(q.From.ID, reply)
}

func (b *Bot) send(chatID int64, reply wizard.Reply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Choices) > 0 {
		msg.ReplyMarkup = keyboard(reply.Choices)
	}
	if _, err := b.API.Send(msg); err != nil {
		b.Log.Error(err, "sending reply failed", "chat", chatID)
	}
}

// keyboard renders one inline button per row.
func keyboard(choices []wizard.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// botLogger adapts a logr.Logger to the tgbotapi.BotLogger interface.
type botLogger struct {
	log logr.Logger
}

func (l botLogger) Println(v ...interface{}) { l.log.Info(fmt.Sprint(v...)) }

func (l botLogger) Printf(format string, v ...interface{}) { l.log.Info(fmt.Sprintf(format, v...)) }

// SetLibraryLogger routes the Telegram library's own log output to log.
func SetLibraryLogger(log logr.Logger) error {
	return tgbotapi.SetLogger(botLogger{log: log})
}
