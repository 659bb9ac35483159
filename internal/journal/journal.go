package journal

import "github.com/sofytk/lazy-daisy/internal/history"

// Journal keeps a local append-only copy of completed rounds and confirmed
// purchases. The remote history store stays authoritative; the journal only
// backs the history view when that store is unreachable, so a result that
// failed to persist remotely still shows up for the player.
type Journal interface {
	RecordResult(text string) error
	RecordPurchase(itemType string, amount int) error
	RecentResults(limit int) ([]history.ResultRecord, error)
	RecentPurchases(limit int) ([]history.PurchaseRecord, error)
	Close() error
}
