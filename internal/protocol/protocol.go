package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello     = "hello"
	TypeWelcome   = "welcome"
	TypeOverlay   = "overlay"
	TypePos       = "pos"
	TypeCmdStatus = "cmd_status"
)

// Command result statuses.
const (
	StatusAccepted = "accepted"
	StatusMatched  = "matched"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
