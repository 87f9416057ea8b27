package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/infra/i18n"
	"classifieds-marketplace/internal/infra/metrics"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// ChatLinker binds a chat to an account using a one-time code.
type ChatLinker interface {
	Link(ctx context.Context, code string, chatID int64) error
}

// RealTelegramBotAdapter delivers seller notifications and handles the
// /start <code> linking handshake with concurrent polling.
type RealTelegramBotAdapter struct {
	bot    *tgbotapi.BotAPI
	linker ChatLinker
	tr     *i18n.Translator
	log    *zerolog.Logger

	// updateWorkers is how many goroutines will concurrently process updates.
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(token string, linker ChatLinker, tr *i18n.Translator, updateWorkers int, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if linker == nil {
		return nil, errors.New("chat linker is nil")
	}
	if tr == nil {
		return nil, errors.New("translator is nil")
	}
	if updateWorkers <= 0 {
		updateWorkers = 2
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{bot: bot, linker: linker, tr: tr, log: &l, updateWorkers: updateWorkers}, nil
}

// StartPolling runs until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Warn().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, telegramID int64, text string) error {
	return r.SendButtons(ctx, telegramID, text, nil)
}

// SendButtons sends a message with inline buttons. A button with a URL opens a
// link; otherwise it carries callback data.
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, telegramID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(telegramID, text)
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	_, err := r.bot.Send(msg)
	return err
}

func keyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				out = append(out, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				out = append(out, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				out = append(out, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, out)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}
	chatID := update.Message.Chat.ID
	reply := r.replyFor(ctx, chatID, update.Message.Text)
	if reply == "" {
		return nil
	}
	return r.SendMessage(ctx, chatID, reply)
}

// replyFor interprets a command and returns the text to answer with.
func (r *RealTelegramBotAdapter) replyFor(ctx context.Context, chatID int64, text string) string {
	cmd, arg := parseCommand(text)
	switch cmd {
	case "/start":
		if arg == "" {
			return r.tr.T("bot.start_no_code")
		}
		err := r.linker.Link(ctx, arg, chatID)
		switch {
		case err == nil:
			metrics.IncNotification("telegram_link", "ok")
			return r.tr.T("bot.linked")
		case errors.Is(err, domain.ErrNotFound):
			metrics.IncNotification("telegram_link", "expired")
			return r.tr.T("bot.link_expired")
		default:
			metrics.IncNotification("telegram_link", "error")
			r.log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram link failed")
			return r.tr.T("bot.error")
		}
	case "/help":
		return r.tr.T("bot.help")
	case "":
		return ""
	default:
		return r.tr.T("bot.unknown")
	}
}

// parseCommand splits "/start CODE" and strips a trailing @botname.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	fields := strings.Fields(text)
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	var arg string
	if len(fields) > 1 {
		arg = fields[1]
	}
	return strings.ToLower(cmd), arg
}
