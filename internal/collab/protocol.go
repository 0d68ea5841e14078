package collab

import (
	"encoding/json"

	"github.com/eyedraw/eyedraw/internal/checker"
)

type Message struct {
	Type     string          `json:"type"`
	PageID   string          `json:"pageId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Drawing     string     `json:"drawing,omitempty"`
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// DrawingState is one drawing as sent to a joining client.
type DrawingState struct {
	Name     string          `json:"drawingName"`
	IDSuffix string          `json:"idSuffix,omitempty"`
	Eye      string          `json:"eye,omitempty"`
	Editable bool            `json:"isEditable"`
	Document json.RawMessage `json:"document"`
	Report   string          `json:"report,omitempty"`
}

type PageStatePayload struct {
	Drawings  []DrawingState `json:"drawings"`
	Readiness checker.State  `json:"readiness"`
	ServerSeq int64          `json:"serverSeq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Page sync
	TypePageState = "page.state"

	TypeOpSubmit = "op.submit"
	TypeOpAck    = "op.ack"
	TypeOpNack   = "op.nack"
)

// Operation types a client may submit.
const (
	OpSetParameter = "param.set"
	OpAddDoodle    = "doodle.add"
	OpDeleteDoodle = "doodle.delete"
	OpSelectDoodle = "doodle.select"
	OpMouseUp      = "mouse.up"
	OpAddTag       = "tag.add"
	OpRemoveTag    = "tag.remove"
	OpCommand      = "command"
)

// Operation is one edit to a drawing on the page.
type Operation struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Drawing string `json:"drawing"`

	// Doodle addressing; the id wins over the class.
	DoodleID string `json:"doodleId,omitempty"`
	Class    string `json:"class,omitempty"`

	// For param.set
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value,omitempty"`

	// For doodle.add
	Params map[string]any `json:"params,omitempty"`

	// For tag.add / tag.remove
	Tag  string `json:"tag,omitempty"`
	Code string `json:"code,omitempty"`

	// For command
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OperationAckPayload struct {
	OperationID string `json:"operationId"`
	ServerSeq   int64  `json:"serverSeq"`
	DoodleID    string `json:"doodleId,omitempty"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}
