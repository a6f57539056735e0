package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	PlayerID        string       `json:"player_id"`
	SessionID       string       `json:"session_id"`
	Rules           RuleDigests  `json:"rules"`
	Tuning          TuningParams `json:"tuning"`
}

type RuleDigests struct {
	CombatDigest  string `json:"combat_digest"`
	RecipesDigest string `json:"recipes_digest"`
}

type TuningParams struct {
	ProximityR      float64 `json:"proximity_r"`
	OfferTTLMs      int64   `json:"offer_ttl_ms"`
	DefenseWindowMs int64   `json:"defense_window_ms"`
}

// POS (client -> server): live position feed consumed by range checks.
type PosMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// OVERLAY (client -> server): one structured command under a per-player
// strictly increasing sequence number. Stale or duplicate seq values are
// dropped by the replay guard without a reply.
type OverlayMsg struct {
	Type    string  `json:"type"`
	Seq     uint64  `json:"seq"`
	Overlay Overlay `json:"overlay"`
}

type Overlay struct {
	Cmd CmdReq `json:"cmd"`
}

// CmdReq carries every field any command kind may use; the engine validates
// the shape per kind and ignores the rest.
type CmdReq struct {
	Kind string `json:"kind"`

	// make
	Items map[string]int `json:"items,omitempty"`

	// rep
	Target string `json:"target,omitempty"` // shared with attack/counter
	Delta  *int   `json:"delta,omitempty"`

	// trade
	To   string         `json:"to,omitempty"` // shared with learn/teach
	Give map[string]int `json:"give,omitempty"`
	Want map[string]int `json:"want,omitempty"`

	// accept / cancel
	Txid string `json:"txid,omitempty"`

	// attack / counter
	With string `json:"with,omitempty"`

	// learn / teach
	Power *PowerSpec     `json:"power,omitempty"`
	Pay   map[string]int `json:"pay,omitempty"`
}

type PowerSpec struct {
	Type    string `json:"type"`
	Mastery int    `json:"mastery,omitempty"`
}

// CMD_STATUS (server -> client): the uniform result of one processed command.
// Constructed once and never mutated after return.
type CmdStatus struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Kind   string `json:"kind,omitempty"`
	From   string `json:"from"`
	Txid   string `json:"txid,omitempty"`
	Reason string `json:"reason,omitempty"`
	Item   string `json:"item,omitempty"`

	// Echo fields for offer creation, rep and counter.
	To     string         `json:"to,omitempty"`
	Give   map[string]int `json:"give,omitempty"`
	Want   map[string]int `json:"want,omitempty"`
	Power  *PowerSpec     `json:"power,omitempty"`
	Pay    map[string]int `json:"pay,omitempty"`
	Target string         `json:"target,omitempty"`
	Delta  *int           `json:"delta,omitempty"`
	With   string         `json:"with,omitempty"`

	Effects *Effects `json:"effects,omitempty"`
}

// Effects describes the state deltas a matched command produced.
type Effects struct {
	Inventory map[string]map[string]int `json:"inventory,omitempty"`
	Health    map[string]int            `json:"health,omitempty"`
	Skills    map[string]map[string]int `json:"skills,omitempty"`
	Combat    *CombatBreakdown          `json:"combat,omitempty"`
}

// CombatBreakdown is a diagnostic echo of how an attack's damage was derived.
type CombatBreakdown struct {
	Weapon  string  `json:"weapon"`
	Attack  string  `json:"attack"`
	Defense string  `json:"defense"`
	Mult    float64 `json:"mult"`
	Raw     float64 `json:"raw"`
	Damage  int     `json:"damage"`
}
