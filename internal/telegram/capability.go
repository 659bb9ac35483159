package telegram

import "fmt"

// Capability is the slice of the Telegram host environment the game core
// needs: the signed launch payload that authenticates every ledger call, and
// the bot deep link used for referral sharing. It is injected explicitly so
// the orchestrator and clients never touch a process-wide SDK handle.
type Capability interface {
	InitData() string
	ShareLink(userID int64) string
}

// WebApp carries the launch payload captured when the mini-app session was
// created. The payload is opaque here; the identity provider verifies it.
type WebApp struct {
	initData string
	botName  string
}

func NewWebApp(initData, botName string) *WebApp {
	return &WebApp{initData: initData, botName: botName}
}

func (w *WebApp) InitData() string { return w.initData }

func (w *WebApp) ShareLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref%d", w.botName, userID)
}
