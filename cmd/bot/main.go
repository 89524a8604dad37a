package main

import (
	"log"
	"os"
	"path/filepath"

	"telegramChartBot/internal/chartimg"
	"telegramChartBot/internal/config"
	"telegramChartBot/internal/openai"
	"telegramChartBot/internal/server"
	"telegramChartBot/internal/storage"
	"telegramChartBot/internal/telegram"
)

func main() {
	cfg := config.Load()

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	log.Printf("db: opened sqlite at %s", cfg.DBPath)
	if err := storage.InitSchema(db); err != nil {
		log.Fatal(err)
	}
	log.Println("db: schema ensured (analysis_requests table)")

	fetcher := chartimg.NewClient(cfg.ChartImgKey)
	analyzer := openai.NewAnalyzer(cfg.OpenAIKey)

	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, fetcher, analyzer, storage.NewStore(db))
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("telegram: bot initialized, webhook target %s", cfg.WebhookPublicURL)

	mux := server.NewHTTPMux(tg.WebhookHandler) // registers /telegram/webhook
	addr := ":" + cfg.Port
	log.Println("http: listening on", addr)
	if err := server.ListenAndServe(addr, mux); err != nil {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
