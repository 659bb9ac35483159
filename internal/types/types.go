package types

import "github.com/sofytk/lazy-daisy/internal/session"

type ClientMessage struct {
	Type      string   `json:"type"`
	SkinID    int      `json:"skin_id,omitempty"`
	Texts     []string `json:"texts,omitempty"`
	PresetKey string   `json:"preset_key,omitempty"`
	Amount    int      `json:"amount,omitempty"`
}

type ServerMessage struct {
	Type     string            `json:"type"` // "StateSnapshot" | "Error"
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}
