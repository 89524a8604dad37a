package telegram

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegramChartBot/internal/catalog"
	"telegramChartBot/internal/session"
	"telegramChartBot/internal/storage"
)

var (
	reStart = regexp.MustCompile(`^/(start|help)(?:@[\w_]+)?$`)
	reStats = regexp.MustCompile(`^/stats(?:@[\w_]+)?$`)
)

const (
	welcomeText = "👋 Welcome to the Financial Market Analysis Bot!\n\n" +
		"I can help you analyze various financial assets using AI-powered technical analysis.\n\n" +
		"Please select an asset you're interested in:"
	fetchingText        = "Fetching and analyzing the chart... Please wait."
	genericErrorText    = "Sorry, there was an error processing your request. Please try again later."
	analysisApologyText = "Sorry, I couldn't analyze the chart at this moment. Please try again later."
	unknownInputText    = "Sorry, I didn't understand that. Please use the buttons or valid commands.\n" +
		"Use /start to begin interaction with the bot."

	statsWindowDays = 7
)

// BotAPI is the slice of *tgbotapi.BotAPI the handlers need.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ChartFetcher retrieves one rendered chart image for a catalog pair.
type ChartFetcher interface {
	FetchChart(ctx context.Context, assetID, timeframeID string) ([]byte, error)
}

// ChartAnalyzer produces technical commentary for a chart image.
type ChartAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (string, error)
}

type actionKind int

const (
	actionUnknown actionKind = iota
	actionAsset
	actionTimeframe
)

// callbackAction is the decoded form of a button payload. Payloads are
// decoded exactly once, here at the boundary.
type callbackAction struct {
	kind actionKind
	id   string
}

func parseCallback(data string) callbackAction {
	switch {
	case strings.HasPrefix(data, "asset_"):
		return callbackAction{kind: actionAsset, id: strings.TrimPrefix(data, "asset_")}
	case strings.HasPrefix(data, "timeframe_"):
		return callbackAction{kind: actionTimeframe, id: strings.TrimPrefix(data, "timeframe_")}
	}
	return callbackAction{kind: actionUnknown}
}

type Handlers struct {
	api      BotAPI
	tracker  *session.Tracker
	fetcher  ChartFetcher
	analyzer ChartAnalyzer
	store    *storage.Store

	fetchTimeout   time.Duration
	analyzeTimeout time.Duration
}

func NewHandlers(api BotAPI, tracker *session.Tracker, fetcher ChartFetcher, analyzer ChartAnalyzer, store *storage.Store) *Handlers {
	return &Handlers{
		api:            api,
		tracker:        tracker,
		fetcher:        fetcher,
		analyzer:       analyzer,
		store:          store,
		fetchTimeout:   30 * time.Second,
		analyzeTimeout: 60 * time.Second,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reStart.MatchString(txt):
		h.sendAssetMenu(m.Chat.ID)
	case reStats.MatchString(txt):
		h.handleStats(m.Chat.ID)
	default:
		h.reply(m.Chat.ID, unknownInputText)
	}
}

func (h *Handlers) HandleCallback(q *tgbotapi.CallbackQuery) {
	// stop the client-side button spinner before doing any real work
	if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Printf("callback: answer failed for user=%d: %v", q.From.ID, err)
	}
	if q.Message == nil {
		log.Printf("callback: user=%d carries no originating message, dropping", q.From.ID)
		return
	}
	chatID := q.Message.Chat.ID

	act := parseCallback(q.Data)
	switch act.kind {
	case actionAsset:
		h.handleAssetChoice(chatID, q.Message.MessageID, q.From.ID, act.id)
	case actionTimeframe:
		h.handleTimeframeChoice(chatID, q.Message.MessageID, q.From.ID, act.id)
	default:
		h.reply(chatID, unknownInputText)
	}
}

func (h *Handlers) sendAssetMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = assetKeyboard()
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("start: send menu to chat=%d failed: %v", chatID, err)
	}
}

func (h *Handlers) handleAssetChoice(chatID int64, messageID int, userID int64, assetID string) {
	asset, err := catalog.AssetByID(assetID)
	if err != nil {
		// only possible when a stale button references a removed catalog entry
		log.Printf("asset choice: user=%d id=%q: %v", userID, assetID, err)
		h.reply(chatID, genericErrorText)
		return
	}
	h.tracker.RecordAsset(userID, asset.ID)

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		fmt.Sprintf("You selected %s.\nNow, please choose a timeframe:", asset.Label),
		timeframeKeyboard())
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("asset choice: edit for user=%d failed: %v", userID, err)
	}
}

// handleTimeframeChoice drives the terminal stage of the flow, strictly in
// order: fetch chart, send photo, analyze, send text. A fetch failure aborts
// everything after it; an analyze failure degrades to an apology because the
// chart is already delivered by then.
func (h *Handlers) handleTimeframeChoice(chatID int64, messageID int, userID int64, timeframeID string) {
	if err := h.tracker.RecordTimeframe(userID, timeframeID); err != nil {
		log.Printf("timeframe choice: user=%d id=%q: %v", userID, timeframeID, err)
		h.reply(chatID, genericErrorText)
		return
	}
	sel, _ := h.tracker.Selection(userID)

	asset, errA := catalog.AssetByID(sel.Asset)
	tf, errT := catalog.TimeframeByID(sel.Timeframe)
	if errA != nil || errT != nil {
		log.Printf("timeframe choice: user=%d selection=%+v: %v %v", userID, sel, errA, errT)
		h.reply(chatID, genericErrorText)
		return
	}

	if _, err := h.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, fetchingText)); err != nil {
		log.Printf("timeframe choice: edit for user=%d failed: %v", userID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.fetchTimeout)
	img, err := h.fetcher.FetchChart(ctx, sel.Asset, sel.Timeframe)
	cancel()
	if err != nil {
		log.Printf("fetch: user=%d asset=%s tf=%s: %v", userID, sel.Asset, sel.Timeframe, err)
		h.recordRequest(chatID, sel, false)
		h.reply(chatID, genericErrorText)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  sel.Asset + "_" + sel.Timeframe + ".png",
		Bytes: img,
	})
	photo.Caption = fmt.Sprintf("Chart for %s (%s)", asset.Label, tf.Label)
	if _, err := h.api.Send(photo); err != nil {
		log.Printf("send photo: user=%d: %v", userID, err)
	}
	h.recordRequest(chatID, sel, true)

	ctx, cancel = context.WithTimeout(context.Background(), h.analyzeTimeout)
	analysis, err := h.analyzer.Analyze(ctx, img)
	cancel()
	if err != nil {
		log.Printf("analyze: user=%d asset=%s tf=%s: %v", userID, sel.Asset, sel.Timeframe, err)
		h.reply(chatID, analysisApologyText)
		return
	}
	h.reply(chatID, fmt.Sprintf("📊 Analysis:\n\n%s\n\nTo analyze another asset, use /start", analysis))
}

func (h *Handlers) handleStats(chatID int64) {
	if h.store == nil {
		h.reply(chatID, "Usage stats are not available.")
		return
	}
	usage, err := h.store.UsageByAsset(statsWindowDays)
	if err != nil {
		log.Printf("stats: chat=%d: %v", chatID, err)
		h.reply(chatID, genericErrorText)
		return
	}
	if len(usage) == 0 {
		h.reply(chatID, fmt.Sprintf("No charts requested in the last %d days.", statsWindowDays))
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Charts requested in the last %d days:\n", statsWindowDays)
	for _, a := range catalog.Assets() {
		if n := usage[a.ID]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", a.Label, n)
		}
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) recordRequest(chatID int64, sel session.Selection, ok bool) {
	if h.store == nil {
		return
	}
	if err := h.store.RecordRequest(chatID, sel.Asset, sel.Timeframe, ok); err != nil {
		log.Printf("record request: chat=%d: %v", chatID, err)
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("reply: send to chat=%d failed: %v", chatID, err)
	}
}

func assetKeyboard() tgbotapi.InlineKeyboardMarkup {
	assets := catalog.Assets()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(a.Label, "asset_"+a.ID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func timeframeKeyboard() tgbotapi.InlineKeyboardMarkup {
	tfs := catalog.Timeframes()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tfs))
	for _, tf := range tfs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tf.Label, "timeframe_"+tf.ID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
