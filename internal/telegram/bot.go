package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
	log zerolog.Logger
}

func NewBot(token, webhookURL string, deps Deps, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log = log.With().Str("component", "telegram").Logger()
	log.Info().Str("webhook", webhookURL).Msg("webhook set")

	return &Bot{api: api, h: NewHandlers(api, deps, log), log: log}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	serveUpdate(w, r, b.h, b.log)
}

func serveUpdate(w http.ResponseWriter, r *http.Request, h *Handlers, log zerolog.Logger) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil {
		log.Debug().Msg("non-message update received")
		w.WriteHeader(http.StatusOK)
		return
	}
	log.Debug().
		Int64("chat_id", update.Message.Chat.ID).
		Str("text", update.Message.Text).
		Msg("webhook message")
	go h.HandleMessage(update.Message)
	w.WriteHeader(http.StatusOK)
}
