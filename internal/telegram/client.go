package telegram

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"samayan-ad-pro/internal/ad"
)

const (
	maxMessageBytes = 4096
	maxCaptionBytes = 1024
)

type Options struct {
	Token       string
	APIEndpoint string // tgbotapi endpoint format; defaults to the public Bot API
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Debug       bool
}

type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		bot:    bot,
		logger: logger,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type Update = tgbotapi.Update

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	} else {
		u.Timeout = 30
	}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadPhoto))
}

func (c *Client) SendText(chatID int64, text string) error {
	for _, p := range splitByBytes(text, maxMessageBytes) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

// SendStatus posts a short message and returns its id so it can be edited later.
func (c *Client) SendStatus(chatID int64, text string) (int, error) {
	msg, err := c.bot.Send(tgbotapi.NewMessage(chatID, truncateByBytes(text, maxMessageBytes)))
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) EditStatus(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, truncateByBytes(text, maxMessageBytes))
	_, err := c.bot.Send(edit)
	return err
}

// SendAd uploads the generated image under its download name with the copy as caption.
// Copy that does not fit a photo caption follows as a separate message.
func (c *Client) SendAd(chatID int64, result ad.Result) error {
	data, err := result.ImageBytes()
	if err != nil {
		return fmt.Errorf("decode ad image: %w", err)
	}

	caption := FormatCopy(result.Copy)
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  result.Filename(),
		Bytes: data,
	})
	if len(caption) <= maxCaptionBytes {
		photo.Caption = caption
	}

	if _, err := c.bot.Send(photo); err != nil {
		return err
	}
	if photo.Caption == "" {
		c.logger.Info("ad copy exceeds caption limit, sending separately", "id", result.ID, "bytes", len(caption))
		return c.SendText(chatID, caption)
	}
	return nil
}

func FormatCopy(cp ad.Copy) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(cp.Tagline))
	b.WriteString("\n\n")
	b.WriteString(cp.Headline)
	b.WriteString("\n\n")
	b.WriteString(cp.Body)
	b.WriteString("\n\n👉 ")
	b.WriteString(cp.CallToAction)
	return b.String()
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len() > 0 && buf.Len()+runeBytes > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len()+runeBytes > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
