package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/sofytk/lazy-daisy/internal/hub"
)

// Scheduler runs the periodic reconciliation job: every tick it asks the hub
// to have each live session re-read quota and profile from the ledger, so a
// payment or referral bonus credited outside the app shows up without a
// reconnect.
type Scheduler struct {
	Cron *cron.Cron
	Hub  *hub.Hub
}

func NewScheduler(h *hub.Hub) *Scheduler {
	return &Scheduler{
		Cron: cron.New(),
		Hub:  h,
	}
}

// Register adds the refresh task. spec accepts standard cron expressions and
// the @every shorthand.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	log.Println("[INFO] running state refresh")
	s.Hub.Inbox() <- hub.RefreshAll{}
}
