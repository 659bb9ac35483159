package types

// StateSnapshot:
//   version: number
//   round:
//     phase: "idle" | "active" | "resolving" | "game_over"
//     petal_count: number
//     total_petals: number
//     pool: string[]
//     last_outcome: string // optional
//   quota_remaining: number
//   balance: number
//   custom_texts: string[]
//   preset_key: string
//   skins: { id, name, price, is_default, owned }[]
//   share_link: string
//   payment_required: boolean
