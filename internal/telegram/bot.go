package telegram

import (
	"encoding/json"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegramChartBot/internal/session"
	"telegramChartBot/internal/storage"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

func NewBot(token, webhookURL string, fetcher ChartFetcher, analyzer ChartAnalyzer, store *storage.Store) (*Bot, error) {
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
	log.Printf("telegram: webhook set to %s", webhookURL)

	h := NewHandlers(api, session.NewTracker(), fetcher, analyzer, store)
	return &Bot{api: api, h: h}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", 400)
		return
	}
	switch {
	case update.CallbackQuery != nil:
		log.Printf("webhook: callback from=%d data=%q", update.CallbackQuery.From.ID, update.CallbackQuery.Data)
		go b.h.HandleCallback(update.CallbackQuery)
	case update.Message != nil:
		log.Printf("webhook: chat_id=%d from=%d text=%q", update.Message.Chat.ID, update.Message.From.ID, update.Message.Text)
		go b.h.HandleMessage(update.Message)
	default:
		log.Printf("webhook: unhandled update type")
	}
	w.WriteHeader(http.StatusOK)
}
