package types

// Client -> Server
// Pluck: {}
//
// NewRound: {}
//
// BuySkin:
//   skin_id: number
//
// SelectSkin:
//   skin_id: number
//
// SetTexts:
//   texts: string[] // 1..3 entries, each <= 20 chars
//
// SetPreset:
//   preset_key: "classic" | "fortune" | "luck" | "mood"
//
// CreatePayment:
//   amount: number // optional, defaults to the daisy price
//
// PaymentDone: {}

// Server -> Client
// StateSnapshot:
//   version: number
//   round: { phase, petal_count, total_petals, pool, last_outcome }
//   quota_remaining: number
//   balance: number
//   custom_texts: string[] // optional
//   preset_key: string     // optional
//   skins: Skin[]          // optional
//   share_link: string     // optional
//   payment_required: boolean
//   invoice_link: string   // one-shot, only on the snapshot announcing it
//   notice: string         // one-shot user-facing message
//
// Error:
//   error: string
