package session

import (
	"github.com/sofytk/lazy-daisy/internal/economy"
	"github.com/sofytk/lazy-daisy/internal/quota"
	"github.com/sofytk/lazy-daisy/internal/round"
)

type Msg interface{ isSessionMsg() }

// FromClient carries a UI command into the session loop.
type FromClient struct {
	Cmd Command
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// RefreshState asks the session to re-read quota and profile from the
// ledger; sent by the periodic reconciliation job.
type RefreshState struct{}

func (RefreshState) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// Internal completion messages posted back into the inbox by async work.

type settleFired struct{ gen int }

func (settleFired) isSessionMsg() {}

type spendConfirmed struct {
	remaining int
	err       error
}

func (spendConfirmed) isSessionMsg() {}

type resultSaved struct {
	err error
}

func (resultSaved) isSessionMsg() {}

type profileFetched struct {
	profile *economy.Profile
	skins   []economy.Skin
	err     error
}

func (profileFetched) isSessionMsg() {}

type quotaFetched struct {
	remaining int
	err       error
}

func (quotaFetched) isSessionMsg() {}

type paymentCreated struct {
	invoice *economy.Invoice
	err     error
}

func (paymentCreated) isSessionMsg() {}

type mutationDone struct {
	what   string // "buy_skin", "select_skin", "set_texts", "set_preset"
	amount int    // journaled for purchases
	err    error
}

func (mutationDone) isSessionMsg() {}

// CommandType enumerates everything the UI can ask for.
type CommandType string

const (
	CmdPluck         CommandType = "Pluck"
	CmdNewRound      CommandType = "NewRound"
	CmdBuySkin       CommandType = "BuySkin"
	CmdSelectSkin    CommandType = "SelectSkin"
	CmdSetTexts      CommandType = "SetTexts"
	CmdSetPreset     CommandType = "SetPreset"
	CmdCreatePayment CommandType = "CreatePayment"
	CmdPaymentDone   CommandType = "PaymentDone"
)

type Command struct {
	Type      CommandType
	SkinID    int
	Texts     []string
	PresetKey string
	Amount    int
}

// Snapshot is what subscribed clients receive after every state change.
// Notice and InvoiceLink are one-shot: set on the snapshot that announces
// them, empty afterwards.
type Snapshot struct {
	Version         int             `json:"version"`
	Round           round.State     `json:"round"`
	QuotaRemaining  int             `json:"quota_remaining"`
	Balance         int             `json:"balance"`
	CustomTexts     []string        `json:"custom_texts,omitempty"`
	PresetKey       string          `json:"preset_key,omitempty"`
	Skins           []economy.Skin  `json:"skins,omitempty"`
	ShareLink       string          `json:"share_link,omitempty"`
	PaymentRequired bool            `json:"payment_required,omitempty"`
	InvoiceLink     string          `json:"invoice_link,omitempty"`
	Notice          string          `json:"notice,omitempty"`
}

// View reflects internal state for tests without data races.
type View struct {
	Version         int
	NumClients      int
	Round           round.State
	Quota           quota.State
	Profile         economy.Profile
	PaymentRequired bool
}
