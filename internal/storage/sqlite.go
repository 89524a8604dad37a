package storage

import (
	"database/sql"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS analysis_requests(
		chat_id INTEGER, asset TEXT, timeframe TEXT, ok INTEGER, ts INTEGER
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// RecordRequest logs one chart flow outcome for usage stats.
func (s *Store) RecordRequest(chatID int64, asset, timeframe string, ok bool) error {
	okInt := 0
	if ok {
		okInt = 1
	}
	_, err := s.db.Exec(`INSERT INTO analysis_requests(chat_id,asset,timeframe,ok,ts) VALUES(?,?,?,?,?)`,
		chatID, asset, timeframe, okInt, time.Now().Unix())
	return err
}

// UsageByAsset returns request counts per asset id over the trailing window.
func (s *Store) UsageByAsset(days int) (map[string]int, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`SELECT asset, COUNT(*) FROM analysis_requests WHERE ts>=? GROUP BY asset`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var asset string
		var n int
		if err := rows.Scan(&asset, &n); err == nil && asset != "" {
			out[asset] = n
		}
	}
	return out, rows.Err()
}
