package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegramChartBot/internal/chartimg"
	"telegramChartBot/internal/session"
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeFetcher struct {
	calls [][2]string
	img   []byte
	err   error
}

func (f *fakeFetcher) FetchChart(_ context.Context, assetID, timeframeID string) ([]byte, error) {
	f.calls = append(f.calls, [2]string{assetID, timeframeID})
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type fakeAnalyzer struct {
	calls int
	text  string
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestHandlers(fetcher *fakeFetcher, analyzer *fakeAnalyzer) (*Handlers, *fakeAPI) {
	api := &fakeAPI{}
	h := NewHandlers(api, session.NewTracker(), fetcher, analyzer, nil)
	return h, api
}

func message(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: chatID},
		Text:      text,
	}
}

func callback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
}

func TestStartListsAssetsInOrder(t *testing.T) {
	h, api := newTestHandlers(&fakeFetcher{}, &fakeAnalyzer{})
	h.HandleMessage(message(5, "/start"))

	if len(api.sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig, got %T", api.sent[0])
	}
	if msg.Text != welcomeText {
		t.Errorf("unexpected welcome text %q", msg.Text)
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
	}
	if len(kb.InlineKeyboard) != 5 {
		t.Fatalf("expected 5 asset buttons, got %d rows", len(kb.InlineKeyboard))
	}
	wantData := []string{"asset_xauusd", "asset_btc", "asset_dxy", "asset_wti", "asset_ndx"}
	for i, want := range wantData {
		row := kb.InlineKeyboard[i]
		if len(row) != 1 {
			t.Fatalf("row %d: expected a single button, got %d", i, len(row))
		}
		if row[0].CallbackData == nil || *row[0].CallbackData != want {
			t.Errorf("row %d: expected callback %s, got %v", i, want, row[0].CallbackData)
		}
	}
}

func TestAssetChoicePresentsTimeframes(t *testing.T) {
	h, api := newTestHandlers(&fakeFetcher{}, &fakeAnalyzer{})
	h.HandleCallback(callback(5, "asset_xauusd"))

	if len(api.sent) != 1 {
		t.Fatalf("expected 1 outbound edit, got %d", len(api.sent))
	}
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("expected EditMessageTextConfig, got %T", api.sent[0])
	}
	if !strings.Contains(edit.Text, "XAU/USD (Gold)") {
		t.Errorf("expected asset label in edit text, got %q", edit.Text)
	}
	if edit.ReplyMarkup == nil || len(edit.ReplyMarkup.InlineKeyboard) != 5 {
		t.Fatalf("expected 5 timeframe buttons, got %+v", edit.ReplyMarkup)
	}
	first := edit.ReplyMarkup.InlineKeyboard[0][0]
	if first.CallbackData == nil || *first.CallbackData != "timeframe_1m" {
		t.Errorf("expected first timeframe button 1m, got %v", first.CallbackData)
	}
}

func TestFullFlowSendsChartThenAnalysis(t *testing.T) {
	fetcher := &fakeFetcher{img: []byte("chart-bytes")}
	analyzer := &fakeAnalyzer{text: "RSI is overbought."}
	h, api := newTestHandlers(fetcher, analyzer)

	h.HandleCallback(callback(5, "asset_xauusd"))
	h.HandleCallback(callback(5, "timeframe_1h"))

	if len(fetcher.calls) != 1 || fetcher.calls[0] != [2]string{"xauusd", "1h"} {
		t.Fatalf("expected one fetch for xauusd/1h, got %v", fetcher.calls)
	}

	// timeframe menu edit, fetching edit, photo, analysis text
	if len(api.sent) != 4 {
		t.Fatalf("expected 4 outbound actions, got %d: %#v", len(api.sent), api.sent)
	}
	photo, ok := api.sent[2].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("expected PhotoConfig third, got %T", api.sent[2])
	}
	if !strings.Contains(photo.Caption, "XAU/USD (Gold)") || !strings.Contains(photo.Caption, "1-hour") {
		t.Errorf("unexpected caption %q", photo.Caption)
	}
	text, ok := api.sent[3].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected MessageConfig last, got %T", api.sent[3])
	}
	if !strings.Contains(text.Text, "RSI is overbought.") {
		t.Errorf("expected analysis content, got %q", text.Text)
	}
}

func TestFetchFailureAbortsFlow(t *testing.T) {
	fetcher := &fakeFetcher{err: &chartimg.UpstreamError{Status: 502, Body: "bad gateway"}}
	analyzer := &fakeAnalyzer{text: "unused"}
	h, api := newTestHandlers(fetcher, analyzer)

	h.HandleCallback(callback(5, "asset_xauusd"))
	h.HandleCallback(callback(5, "timeframe_1h"))

	if analyzer.calls != 0 {
		t.Errorf("analysis must not run after a failed fetch")
	}
	for _, c := range api.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			t.Fatal("no photo must be sent after a failed fetch")
		}
	}
	last, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	if !ok || last.Text != genericErrorText {
		t.Errorf("expected generic error message, got %#v", api.sent[len(api.sent)-1])
	}
}

func TestTimeframeWithoutAssetIsRejected(t *testing.T) {
	fetcher := &fakeFetcher{img: []byte("chart-bytes")}
	h, api := newTestHandlers(fetcher, &fakeAnalyzer{})

	h.HandleCallback(callback(5, "timeframe_1h"))

	if len(fetcher.calls) != 0 {
		t.Errorf("no fetch must be attempted without a prior asset pick")
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok || msg.Text != genericErrorText {
		t.Errorf("expected generic error message, got %#v", api.sent[0])
	}
}

func TestAnalysisFailureDegradesToApology(t *testing.T) {
	fetcher := &fakeFetcher{img: []byte("chart-bytes")}
	analyzer := &fakeAnalyzer{err: errors.New("model unavailable")}
	h, api := newTestHandlers(fetcher, analyzer)

	h.HandleCallback(callback(5, "asset_btc"))
	h.HandleCallback(callback(5, "timeframe_1d"))

	if len(api.sent) != 4 {
		t.Fatalf("expected 4 outbound actions, got %d", len(api.sent))
	}
	if _, ok := api.sent[2].(tgbotapi.PhotoConfig); !ok {
		t.Fatalf("expected the chart photo before the apology, got %T", api.sent[2])
	}
	last, ok := api.sent[3].(tgbotapi.MessageConfig)
	if !ok || last.Text != analysisApologyText {
		t.Errorf("expected apology message, got %#v", api.sent[3])
	}
}

func TestNewAssetRestartsFlow(t *testing.T) {
	fetcher := &fakeFetcher{img: []byte("chart-bytes")}
	h, _ := newTestHandlers(fetcher, &fakeAnalyzer{text: "ok"})

	h.HandleCallback(callback(9, "asset_btc"))
	h.HandleCallback(callback(9, "timeframe_1h"))
	h.HandleCallback(callback(9, "asset_wti"))
	h.HandleCallback(callback(9, "timeframe_5m"))

	if len(fetcher.calls) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(fetcher.calls))
	}
	if fetcher.calls[1] != [2]string{"wti", "5m"} {
		t.Errorf("expected second fetch wti/5m, got %v", fetcher.calls[1])
	}
}

func TestUnknownInputGetsHelp(t *testing.T) {
	h, api := newTestHandlers(&fakeFetcher{}, &fakeAnalyzer{})

	h.HandleMessage(message(5, "what is the price of gold?"))
	h.HandleCallback(callback(5, "bogus_payload"))

	if len(api.sent) != 2 {
		t.Fatalf("expected 2 outbound messages, got %d", len(api.sent))
	}
	for i, c := range api.sent {
		msg, ok := c.(tgbotapi.MessageConfig)
		if !ok || msg.Text != unknownInputText {
			t.Errorf("reply %d: expected help text, got %#v", i, c)
		}
	}
}

func TestParseCallback(t *testing.T) {
	if act := parseCallback("asset_btc"); act.kind != actionAsset || act.id != "btc" {
		t.Errorf("unexpected action %+v", act)
	}
	if act := parseCallback("timeframe_15m"); act.kind != actionTimeframe || act.id != "15m" {
		t.Errorf("unexpected action %+v", act)
	}
	if act := parseCallback("garbage"); act.kind != actionUnknown {
		t.Errorf("unexpected action %+v", act)
	}
}
