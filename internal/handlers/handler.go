package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"samayan-ad-pro/internal/ad"
	"samayan-ad-pro/internal/session"
	"samayan-ad-pro/internal/telegram"
)

// Messenger is the part of the Telegram client the handler needs.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendStatus(chatID int64, text string) (int, error)
	EditStatus(chatID int64, messageID int, text string) error
	SendAd(chatID int64, result ad.Result) error
}

type Options struct {
	Telegram Messenger
	Sessions *session.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg       Messenger
	sessions *session.Store
	logger   *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Telegram,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	sess := h.sessions.GetOrCreate(strconv.FormatInt(msg.From.ID, 10))

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, sess, msg)
	}
	if msg.Text != "" {
		return h.handleText(ctx, chatID, sess, msg.Text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, sess *session.Session, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		if user := sess.User(); user.IsOnboarded {
			return h.tg.SendText(chatID, fmt.Sprintf("Welcome back, %s! Describe your ad or use /ad <description>.", user.Name))
		}
		sess.SetAwaitingName(true)
		return h.tg.SendText(chatID, "Welcome to Samayan Ad Pro!\n\nCreate professional ad creatives in seconds. What's your name?")
	case "help":
		return h.tg.SendText(chatID,
			"Samayan Ad Pro\n\n"+
				"/start - Get started\n"+
				"/ad <description> - Create an ad\n"+
				"/ratio <1:1|16:9|9:16> - Select format (square, landscape, portrait)\n"+
				"/help - This message\n\n"+
				"After onboarding, any text message is treated as an ad description.",
		)
	case "ratio":
		return h.handleRatio(chatID, sess, msg.CommandArguments())
	case "ad":
		return h.generate(ctx, chatID, sess, msg.CommandArguments())
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, sess *session.Session, text string) error {
	if sess.User().IsOnboarded {
		return h.generate(ctx, chatID, sess, text)
	}
	if !sess.AwaitingName() {
		return h.tg.SendText(chatID, "Please send /start to get started.")
	}

	user, err := sess.Onboard(text)
	if errors.Is(err, session.ErrEmptyName) {
		return h.tg.SendText(chatID, session.MessageNameRequired)
	}
	return h.tg.SendText(chatID, fmt.Sprintf(
		"Hello, %s.\n\nSelect a format with /ratio (current: %s) and describe your vision.",
		user.Name, sess.AspectRatio(),
	))
}

func (h *Handler) handleRatio(chatID int64, sess *session.Session, args string) error {
	if strings.TrimSpace(args) == "" {
		return h.tg.SendText(chatID, fmt.Sprintf("Current format: %s\nUse /ratio 1:1, /ratio 16:9 or /ratio 9:16.", sess.AspectRatio()))
	}

	ratio, err := ad.ParseAspectRatio(args)
	if err != nil {
		return h.tg.SendText(chatID, "❌ Unsupported format. Use 1:1, 16:9 or 9:16.")
	}
	sess.SetAspectRatio(ratio)
	return h.tg.SendText(chatID, fmt.Sprintf("✅ Format set to %s.", ratio))
}

func (h *Handler) generate(ctx context.Context, chatID int64, sess *session.Session, prompt string) error {
	if !sess.User().IsOnboarded {
		return h.tg.SendText(chatID, "Please send /start to get started.")
	}
	if strings.TrimSpace(prompt) == "" {
		return h.tg.SendText(chatID, "❌ Please describe your ad.\nExample: /ad Neon shoes running on water")
	}

	ratio := sess.AspectRatio()
	statusID := 0
	progress := func(ev ad.Event) {
		text := progressText(ev, ratio)
		if text == "" {
			return
		}
		if statusID == 0 {
			id, err := h.tg.SendStatus(chatID, text)
			if err != nil {
				h.logger.Warn("send status failed", "err", err)
				return
			}
			statusID = id
			return
		}
		if err := h.tg.EditStatus(chatID, statusID, text); err != nil {
			h.logger.Warn("edit status failed", "err", err)
		}
	}

	h.tg.SendTyping(chatID)
	result, err := sess.Orchestrator.Run(ctx, prompt, ratio, progress)
	switch {
	case errors.Is(err, ad.ErrBusy):
		return h.tg.SendText(chatID, "⏳ Still working on your previous ad. Please wait.")
	case errors.Is(err, ad.ErrEmptyPrompt):
		return h.tg.SendText(chatID, "❌ Please describe your ad.")
	case err != nil:
		// The progress message already carries the user-facing error.
		if statusID == 0 {
			return h.tg.SendText(chatID, "❌ "+ad.UserMessage(err))
		}
		return nil
	}

	return h.tg.SendAd(chatID, result)
}

func progressText(ev ad.Event, ratio ad.AspectRatio) string {
	switch ev.Status {
	case ad.StatusGeneratingImage:
		return fmt.Sprintf("🎨 Generating high-resolution visuals (%s)...", ratio)
	case ad.StatusGeneratingCopy:
		return "✍️ Crafting professional copy..."
	case ad.StatusSuccess:
		return "✅ Your ad is ready!"
	case ad.StatusError:
		return "❌ " + ev.Message
	}
	return ""
}
