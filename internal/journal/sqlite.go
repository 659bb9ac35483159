package journal

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sofytk/lazy-daisy/internal/history"
)

// SQLiteJournal persists the local play log to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteJournal opens (or creates) the database and runs migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite journal opened: %s", dbPath)
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			text       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ts ON results(created_at)`,

		`CREATE TABLE IF NOT EXISTS purchases (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			item_type  TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_ts ON purchases(created_at)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (j *SQLiteJournal) RecordResult(text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO results (text, created_at) VALUES (?,?)`,
		text, time.Now().Unix())
	return err
}

func (j *SQLiteJournal) RecordPurchase(itemType string, amount int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO purchases (item_type, amount, created_at) VALUES (?,?,?)`,
		itemType, amount, time.Now().Unix())
	return err
}

func (j *SQLiteJournal) RecentResults(limit int) ([]history.ResultRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`SELECT id, text, created_at FROM results ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []history.ResultRecord
	for rows.Next() {
		var rec history.ResultRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.Text, &ts); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(ts, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (j *SQLiteJournal) RecentPurchases(limit int) ([]history.PurchaseRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`SELECT id, item_type, amount, created_at FROM purchases ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []history.PurchaseRecord
	for rows.Next() {
		var rec history.PurchaseRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.ItemType, &rec.Amount, &ts); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(ts, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	log.Println("[INFO] closing sqlite journal")
	return j.db.Close()
}
