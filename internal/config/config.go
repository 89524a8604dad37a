package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken    string
	WebhookPublicURL string
	ChartImgKey      string
	OpenAIKey        string
	Port             string
	DBPath           string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}

func Load() Config {
	// .env is optional; deployments usually inject env directly
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "9095"
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "/app/data/requests.db"
	}
	return Config{
		TelegramToken:    mustEnv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL: mustEnv("WEBHOOK_PUBLIC_URL"),
		ChartImgKey:      mustEnv("CHART_IMG_API_KEY"),
		OpenAIKey:        mustEnv("OPENAI_API_KEY"),
		Port:             port,
		DBPath:           dbPath,
	}
}
