// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/zhaopengme/transclaw/pkg/bus"
	"github.com/zhaopengme/transclaw/pkg/config"
	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/metrics"
	"github.com/zhaopengme/transclaw/pkg/retry"
	"github.com/zhaopengme/transclaw/pkg/utils"
)

// MaxChunkBytes keeps each outgoing message below Telegram's 4096 limit.
const MaxChunkBytes = 4000

// pollGrace is added to the long-poll timeout for the HTTP round trip.
const pollGrace = 10 * time.Second

var ErrEmptyFilePath = errors.New("telegram returned an empty file path")

// botAPI is the part of *telego.Bot the client uses.
type botAPI interface {
	GetUpdates(ctx context.Context, params *telego.GetUpdatesParams) ([]telego.Update, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error)
	FileDownloadURL(filepath string) string
}

type Options struct {
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	TempDir        string
	MaxFileBytes   int64
	// SendRate is the sustained sendMessage rate per second; 0 disables limiting.
	SendRate float64
	Retry    retry.Policy
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollTimeout:    cfg.Telegram.PollTimeout,
		RequestTimeout: cfg.Telegram.RequestTimeout,
		TempDir:        cfg.Relay.TempDir,
		MaxFileBytes:   cfg.Extraction.MaxImageBytes,
		SendRate:       cfg.Relay.SendRate,
		Retry: retry.Policy{
			Attempts:  cfg.Relay.RetryAttempts,
			BaseDelay: cfg.Relay.RetryBaseDelay,
		},
	}
}

// TelegramClient talks to the Bot API. Every operation is retried according
// to the configured policy.
type TelegramClient struct {
	bot        botAPI
	httpClient *http.Client
	opts       Options
	limiter    *rate.Limiter
}

func NewTelegramClient(cfg *config.Config) (*TelegramClient, error) {
	telegramCfg := cfg.Telegram

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if telegramCfg.Proxy != "" {
		proxyURL, err := url.Parse(telegramCfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", telegramCfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	httpClient := &http.Client{Transport: transport}

	botOpts := []telego.BotOption{
		telego.WithHTTPClient(httpClient),
		telego.WithLogger(telegoLogger{token: telegramCfg.Token}),
	}
	if telegramCfg.APIURL != "" {
		botOpts = append(botOpts, telego.WithAPIServer(strings.TrimRight(telegramCfg.APIURL, "/")))
	}

	bot, err := telego.NewBot(telegramCfg.Token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newClient(bot, httpClient, OptionsFromConfig(cfg)), nil
}

func newClient(bot botAPI, httpClient *http.Client, opts Options) *TelegramClient {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	userRetry, userExhausted := opts.Retry.OnRetry, opts.Retry.OnExhausted
	opts.Retry.OnRetry = func(op string, attempt int, err error) {
		metrics.TransportRetries.WithLabelValues(op).Inc()
		if userRetry != nil {
			userRetry(op, attempt, err)
		}
	}
	opts.Retry.OnExhausted = func(op string, err error) {
		metrics.TransportFailures.WithLabelValues(op).Inc()
		logger.ErrorCF("telegram", "Operation failed after all attempts", map[string]interface{}{
			"op":    op,
			"error": err.Error(),
		})
		if userExhausted != nil {
			userExhausted(op, err)
		}
	}

	c := &TelegramClient{bot: bot, httpClient: httpClient, opts: opts}
	if opts.SendRate > 0 {
		burst := int(opts.SendRate)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.SendRate), burst)
	}
	return c
}

// Poll long-polls for updates starting at cursor (0 means "whatever the
// server has") and returns the events plus the cursor to use next. Updates
// that carry no message advance the cursor but yield no event.
func (c *TelegramClient) Poll(ctx context.Context, cursor int64) ([]bus.InboundEvent, int64, error) {
	params := &telego.GetUpdatesParams{
		Timeout:        int(c.opts.PollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}
	if cursor > 0 {
		params.Offset = int(cursor)
	}

	updates, err := retry.Do(ctx, c.opts.Retry, "getUpdates", func(ctx context.Context) ([]telego.Update, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.PollTimeout+pollGrace)
		defer cancel()
		updates, err := c.bot.GetUpdates(callCtx, params)
		return updates, err
	})
	if err != nil {
		return nil, cursor, err
	}

	next := cursor
	events := make([]bus.InboundEvent, 0, len(updates))
	for _, u := range updates {
		if id := int64(u.UpdateID) + 1; id > next {
			next = id
		}
		if u.Message == nil {
			continue
		}
		events = append(events, toEvent(int64(u.UpdateID), u.Message))
	}
	return events, next, nil
}

// Confirm tells the server that every update before cursor was handled,
// without waiting for new ones.
func (c *TelegramClient) Confirm(ctx context.Context, cursor int64) error {
	params := &telego.GetUpdatesParams{
		Offset:         int(cursor),
		Limit:          1,
		AllowedUpdates: []string{"message"},
	}
	return retry.Run(ctx, c.opts.Retry, "confirmUpdates", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
		_, err := c.bot.GetUpdates(callCtx, params)
		return err
	})
}

func toEvent(updateID int64, m *telego.Message) bus.InboundEvent {
	ev := bus.InboundEvent{
		EventID:   updateID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
	}
	if m.From != nil {
		ev.Sender = bus.Sender{ID: m.From.ID, Username: m.From.Username, FirstName: m.From.FirstName}
	}

	switch {
	case m.Text != "":
		ev.Payload = bus.TextPayload{RawText: m.Text}
	case len(m.Photo) > 0:
		largest := m.Photo[len(m.Photo)-1]
		ev.Payload = bus.PhotoPayload{FileID: largest.FileID, FileUniqueID: largest.FileUniqueID}
	default:
		ev.Payload = bus.OtherPayload{}
	}
	return ev
}

// Send posts text as plain text, split into chunks when it is too long, and
// returns the handle of the first chunk. When a later chunk fails the error
// wraps bus.ErrPartialDelivery.
func (c *TelegramClient) Send(ctx context.Context, chatID int64, text string) (bus.MessageHandle, error) {
	var first bus.MessageHandle
	for i, chunk := range splitText(text, MaxChunkBytes) {
		msg, err := retry.Do(ctx, c.opts.Retry, "sendMessage", func(ctx context.Context) (*telego.Message, error) {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return nil, err
				}
			}
			callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
			defer cancel()
			msg, err := c.bot.SendMessage(callCtx, &telego.SendMessageParams{
				ChatID: tu.ID(chatID),
				Text:   chunk,
			})
			return msg, err
		})
		if err != nil {
			if i > 0 {
				return first, fmt.Errorf("send chunk %d to chat %d: %w: %w", i, chatID, bus.ErrPartialDelivery, err)
			}
			return first, fmt.Errorf("send chunk %d to chat %d: %w", i, chatID, err)
		}
		if i == 0 && msg != nil {
			first = bus.MessageHandle{ChatID: chatID, MessageID: msg.MessageID}
		}
	}
	return first, nil
}

// Edit replaces the text of a message the bot sent. Editing to identical
// text counts as success.
func (c *TelegramClient) Edit(ctx context.Context, h bus.MessageHandle, text string) error {
	return retry.Run(ctx, c.opts.Retry, "editMessageText", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
		_, err := c.bot.EditMessageText(callCtx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(h.ChatID),
			MessageID: h.MessageID,
			Text:      text,
		})
		if err != nil && strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return err
	})
}

// Delete removes a message. A message that is already gone counts as deleted.
func (c *TelegramClient) Delete(ctx context.Context, h bus.MessageHandle) error {
	return retry.Run(ctx, c.opts.Retry, "deleteMessage", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
		err := c.bot.DeleteMessage(callCtx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(h.ChatID),
			MessageID: h.MessageID,
		})
		if err != nil && strings.Contains(err.Error(), "message to delete not found") {
			logger.DebugCF("telegram", "Message already deleted", map[string]interface{}{
				"chat_id":    h.ChatID,
				"message_id": h.MessageID,
			})
			return nil
		}
		return err
	})
}

// FileLocation resolves a file id to the server-side path used by Download.
func (c *TelegramClient) FileLocation(ctx context.Context, fileID string) (string, error) {
	return retry.Do(ctx, c.opts.Retry, "getFile", func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
		file, err := c.bot.GetFile(callCtx, &telego.GetFileParams{FileID: fileID})
		if err != nil {
			return "", err
		}
		if file == nil || file.FilePath == "" {
			return "", ErrEmptyFilePath
		}
		return file.FilePath, nil
	})
}

// Download fetches the file at location into a new file under the temp dir.
// The caller removes it.
func (c *TelegramClient) Download(ctx context.Context, location string) (string, error) {
	fileURL := c.bot.FileDownloadURL(location)
	return retry.Do(ctx, c.opts.Retry, "download", func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
		req, err := http.NewRequest(http.MethodGet, fileURL, nil)
		if err != nil {
			return "", retry.Permanent(err)
		}
		path, err := utils.DownloadToFile(callCtx, c.httpClient, req, c.opts.TempDir, "photo-*.jpg", c.opts.MaxFileBytes)
		if errors.Is(err, utils.ErrTooLarge) {
			return "", retry.Permanent(err)
		}
		return path, err
	})
}

// telegoLogger routes telego's logs to zap and keeps the token out of them.
type telegoLogger struct {
	token string
}

func (l telegoLogger) redact(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.token != "" {
		msg = strings.ReplaceAll(msg, l.token, "BOT_TOKEN")
	}
	return msg
}

func (l telegoLogger) Debugf(format string, args ...any) {
	logger.DebugC("telego", l.redact(format, args...))
}

func (l telegoLogger) Errorf(format string, args ...any) {
	logger.ErrorC("telego", l.redact(format, args...))
}
