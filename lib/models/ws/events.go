package ws

import "encoding/json"

// Event names exchanged with the editor frontend. These are wire constants
// and must match the client verbatim.
const (
	// client -> server
	EventJoinSession   = "joinSession"
	EventCodeChange    = "codeChange"
	EventCursorChange  = "cursorChange"
	EventExecuteCode   = "executeCode"
	EventEditHighlight = "editHighlight"
	EventEditorError   = "editorError"
	EventLeaveSession  = "leaveSession"

	// server -> client
	EventUserJoined      = "userJoined"
	EventCodeUpdate      = "codeUpdate"
	EventCursorChanged   = "cursorChanged"
	EventExecutionResult = "executionResult"
	EventUserLeft        = "userLeft"
)

// Envelope wraps every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode marshals data into an Envelope ready to be written to a socket.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type JoinSession struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

type CodeChange struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
	Username  string `json:"username"`
}

type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type CursorChange struct {
	SessionID      string         `json:"sessionId"`
	CursorPosition CursorPosition `json:"cursorPosition"`
	Username       string         `json:"username"`
}

// CursorBroadcast is the cursorChanged payload fanned out to the room.
type CursorBroadcast struct {
	Username       string         `json:"username"`
	CursorPosition CursorPosition `json:"cursorPosition"`
}

type ExecuteCode struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
	Username  string `json:"username"`
}

// EditHighlight carries a line highlight raised by one editor. LineNumber is a
// pointer so a missing field is distinguishable from line zero.
type EditHighlight struct {
	SessionID  string   `json:"sessionId"`
	LineNumber *float64 `json:"lineNumber"`
	EditorID   string   `json:"editorId"`
	Timestamp  int64    `json:"timestamp"`
}

// Valid reports whether the highlight carries a numeric line number and
// non-empty editor id and timestamp. Invalid highlights are dropped silently.
func (h EditHighlight) Valid() bool {
	return h.LineNumber != nil && h.EditorID != "" && h.Timestamp != 0
}

// HighlightBroadcast is the editHighlight payload fanned out to the room.
// The session id is stripped; only these three fields travel.
type HighlightBroadcast struct {
	LineNumber float64 `json:"lineNumber"`
	EditorID   string  `json:"editorId"`
	Timestamp  int64   `json:"timestamp"`
}

type EditorError struct {
	SessionID    string `json:"sessionId"`
	ErrorMessage string `json:"errorMessage"`
}

type LeaveSession struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}
