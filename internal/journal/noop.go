package journal

import "github.com/sofytk/lazy-daisy/internal/history"

// NoopJournal is used when no journal path is configured.
type NoopJournal struct{}

func NewNoopJournal() *NoopJournal { return &NoopJournal{} }

func (n *NoopJournal) RecordResult(_ string) error          { return nil }
func (n *NoopJournal) RecordPurchase(_ string, _ int) error { return nil }
func (n *NoopJournal) RecentResults(_ int) ([]history.ResultRecord, error) {
	return nil, nil
}
func (n *NoopJournal) RecentPurchases(_ int) ([]history.PurchaseRecord, error) {
	return nil, nil
}
func (n *NoopJournal) Close() error { return nil }
