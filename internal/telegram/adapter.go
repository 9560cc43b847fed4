package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/kernel6/internal/gateway"
	"github.com/user/kernel6/internal/types"
)

const (
	maxTelegramMessage = 4096
	source             = "telegram"
)

// Inbound accepts events for processing.
type Inbound interface {
	HandleInbound(ctx context.Context, ev *types.InboundEvent, opts ...gateway.RunOption) error
}

// Adapter bridges Telegram to the gateway and delivers replies back to
// Telegram chats.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	inbound Inbound
}

var _ types.Channel = (*Adapter)(nil)

// New creates a Telegram adapter.
func New(token string, inbound Inbound) (*Adapter, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, inbound)
}

// NewWithEndpoint creates an adapter talking to a custom Bot API endpoint
// (format "https://host/bot%s/%s").
func NewWithEndpoint(token, endpoint string, inbound Inbound) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{bot: bot, inbound: inbound}, nil
}

// Username returns the bot's Telegram username.
func (a *Adapter) Username() string {
	return a.bot.Self.UserName
}

// Start begins long-polling for Telegram updates and blocks until ctx is
// done.
func (a *Adapter) Start(ctx context.Context) {
	if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		slog.Warn("delete webhook failed", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			a.handleUpdate(ctx, update)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// RegisterWebhook points Telegram at url for update delivery.
func (a *Adapter) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := a.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	slog.Info("telegram webhook registered")
	return nil
}

// WebhookHandler serves updates pushed by Telegram.
func (a *Adapter) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := a.bot.HandleUpdate(r)
		if err != nil {
			slog.Warn("bad webhook update", "error", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		a.handleUpdate(ctx, *update)
		w.WriteHeader(http.StatusOK)
	})
}

func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if _, err := a.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			slog.Debug("answer callback failed", "error", err)
		}
	}

	event := toInboundEvent(update)
	if event == nil {
		return
	}
	if err := a.inbound.HandleInbound(ctx, event); err != nil {
		slog.Error("handle inbound error", "session_key", string(event.SessionKey), "error", err)
	}
}

// toInboundEvent converts an update into an event, or nil when the update
// carries nothing the bot reacts to.
func toInboundEvent(update tgbotapi.Update) *types.InboundEvent {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return nil
		}
		return &types.InboundEvent{
			Source:     source,
			SessionKey: buildSessionKey(cq.From.ID, cq.Message.Chat.ID),
			UserID:     strconv.FormatInt(cq.From.ID, 10),
			ChatID:     strconv.FormatInt(cq.Message.Chat.ID, 10),
			Kind:       types.EventControl,
			Control:    cq.Data,
		}
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}
	event := &types.InboundEvent{
		Source:     source,
		SessionKey: buildSessionKey(msg.From.ID, msg.Chat.ID),
		UserID:     strconv.FormatInt(msg.From.ID, 10),
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
	}
	switch {
	case msg.IsCommand():
		event.Kind = types.EventCommand
		event.Command = strings.ToLower(msg.Command())
		event.Text = msg.CommandArguments()
	case len(msg.Photo) > 0:
		// Sizes are ascending; keep the largest.
		event.Kind = types.EventImage
		event.ImageRef = msg.Photo[len(msg.Photo)-1].FileID
		event.Text = msg.Caption
	default:
		event.Kind = types.EventText
		event.Text = msg.Text
	}
	return event
}

// SendText delivers text, split at the Telegram size limit. The keyboard is
// attached to the last part.
func (a *Adapter) SendText(ctx context.Context, key types.SessionKey, text string, kb types.Keyboard) error {
	chatID, err := chatIDFromKey(key)
	if err != nil {
		return err
	}
	parts := splitMessage(text)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		if i == len(parts)-1 && len(kb) > 0 {
			msg.ReplyMarkup = inlineKeyboard(kb)
		}
		if err := a.send(&msg, &msg.ParseMode); err != nil {
			return err
		}
	}
	return nil
}

// SendImage sends a previously received photo by its file id.
func (a *Adapter) SendImage(ctx context.Context, key types.SessionKey, imageRef, caption string, kb types.Keyboard) error {
	chatID, err := chatIDFromKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(imageRef))
	photo.Caption = caption
	if len(kb) > 0 {
		photo.ReplyMarkup = inlineKeyboard(kb)
	}
	return a.send(&photo, &photo.ParseMode)
}

// send tries Markdown first and retries as plain text only when Telegram
// rejects the entities. Other failures are not retried, since the first
// attempt may already have been delivered.
func (a *Adapter) send(c tgbotapi.Chattable, parseMode *string) error {
	*parseMode = tgbotapi.ModeMarkdown
	_, err := a.bot.Send(c)
	if err == nil {
		return nil
	}
	if !entityError(err) {
		return fmt.Errorf("%w: telegram send: %w", types.ErrTransport, err)
	}
	*parseMode = ""
	if _, err := a.bot.Send(c); err != nil {
		return fmt.Errorf("%w: telegram send: %w", types.ErrTransport, err)
	}
	return nil
}

// entityError reports whether err is a Bot API rejection of the message
// formatting ("can't parse entities").
func entityError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "parse entities")
}

func inlineKeyboard(kb types.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Value))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		// Do not cut a multi-byte character in half.
		for end < len(text) && end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func buildSessionKey(userID, chatID int64) types.SessionKey {
	return types.NewSessionKey(source,
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(chatID, 10),
	)
}

// chatIDFromKey extracts the chat id, the last segment of a key built by
// buildSessionKey.
func chatIDFromKey(key types.SessionKey) (int64, error) {
	s := string(key)
	i := strings.LastIndexByte(s, ':')
	if i < 0 || !strings.HasPrefix(s, source+":") {
		return 0, fmt.Errorf("%w: not a telegram session key: %s", types.ErrTransport, key)
	}
	id, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad chat id in %s: %w", types.ErrTransport, key, err)
	}
	return id, nil
}
