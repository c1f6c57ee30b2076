package ws

import (
	"context"
	"errors"

	"github.com/codepair/codepair/lib/db"
	"github.com/codepair/codepair/lib/exception"
	ws2 "github.com/codepair/codepair/lib/models/ws"
	"github.com/codepair/codepair/lib/runner"
	"github.com/codepair/codepair/lib/throttle"
	"go.uber.org/zap"
)

// CollabMessageHandler orchestrates one collaborative coding session event at
// a time: fan-out through the hub, throttled persistence through the session
// store, and code execution through the runner.
//
// Every handler is fire and forget; no failure in here aborts the connection.
type CollabMessageHandler struct {
	store    db.DataStore
	hub      *Hub
	saveGate *throttle.Gate
	runner   *runner.Runner
	logger   *zap.SugaredLogger
}

func NewCollabMessageHandler(store db.DataStore, hub *Hub, saveGate *throttle.Gate,
	codeRunner *runner.Runner, logger *zap.SugaredLogger) *CollabMessageHandler {
	return &CollabMessageHandler{
		store:    store,
		hub:      hub,
		saveGate: saveGate,
		runner:   codeRunner,
		logger:   logger,
	}
}

func (h *CollabMessageHandler) Hub() *Hub {
	return h.hub
}

func (h *CollabMessageHandler) HandleJoinSession(c *Client, join ws2.JoinSession) {
	h.hub.JoinRoom(c, join.SessionID)
	h.broadcastToOthers(c, join.SessionID, ws2.EventUserJoined, join.Username)
}

func (h *CollabMessageHandler) HandleCodeChange(c *Client, change ws2.CodeChange) {
	h.broadcastToOthers(c, change.SessionID, ws2.EventCodeUpdate, change.Code)
	go h.saveSnapshot(change.SessionID, change.Code)
}

func (h *CollabMessageHandler) HandleCursorChange(c *Client, cursor ws2.CursorChange) {
	h.broadcastToOthers(c, cursor.SessionID, ws2.EventCursorChanged, ws2.CursorBroadcast{
		Username:       cursor.Username,
		CursorPosition: cursor.CursorPosition,
	})
}

func (h *CollabMessageHandler) HandleExecuteCode(c *Client, execute ws2.ExecuteCode) {
	h.saveSnapshot(execute.SessionID, execute.Code)
	go h.runCode(c, execute)
}

func (h *CollabMessageHandler) HandleEditHighlight(c *Client, highlight ws2.EditHighlight) {
	if !highlight.Valid() {
		// Fail closed, fail quiet: the highlight simply never reaches the
		// other collaborators.
		return
	}
	h.broadcastToOthers(c, highlight.SessionID, ws2.EventEditHighlight, ws2.HighlightBroadcast{
		LineNumber: *highlight.LineNumber,
		EditorID:   highlight.EditorID,
		Timestamp:  highlight.Timestamp,
	})
}

func (h *CollabMessageHandler) HandleEditorError(c *Client, editorError ws2.EditorError) {
	h.broadcastToOthers(c, editorError.SessionID, ws2.EventEditorError, editorError.ErrorMessage)
}

func (h *CollabMessageHandler) HandleLeaveSession(c *Client, leave ws2.LeaveSession) {
	h.hub.LeaveRoom(c, leave.SessionID)
	h.broadcastToOthers(c, leave.SessionID, ws2.EventUserLeft, leave.Username)
}

// HandleDisconnect is the implicit leave from every joined room. Remaining
// members get no further events addressed to this connection.
func (h *CollabMessageHandler) HandleDisconnect(c *Client, logger *zap.SugaredLogger) {
	h.hub.RemoveFromAllRooms(c)
	logger.Debugw("connection closed", "connId", c.ConnID)
}

// saveSnapshot offers one snapshot to the throttled persistence path. A
// closed window drops the snapshot; a failed append is logged and swallowed,
// the live broadcast already happened.
func (h *CollabMessageHandler) saveSnapshot(sessionID, code string) {
	saved, err := h.saveGate.Do(sessionID, func() error {
		_, appendErr := h.store.AppendVersion(sessionID, code)
		return appendErr
	})
	if err != nil {
		h.logger.Warnw("snapshot save failed", "sessionId", sessionID, "error", err)
		return
	}
	if !saved {
		h.logger.Debugw("snapshot skipped by throttle", "sessionId", sessionID)
	}
}

func (h *CollabMessageHandler) runCode(c *Client, execute ws2.ExecuteCode) {
	result, err := h.runner.Execute(context.Background(), execute.Code)

	if err == nil {
		// Success is delivered to the whole room and once more to the sender
		// directly; clients dedupe on their side.
		h.broadcastToRoom(execute.SessionID, ws2.EventExecutionResult, result.Stdout)
		h.sendTo(c, ws2.EventExecutionResult, result.Stdout)
		return
	}

	var programErr *exception.ProgramError
	if errors.As(err, &programErr) {
		h.logger.Infow("program failed", "sessionId", execute.SessionID, "username", execute.Username)
		h.sendTo(c, ws2.EventExecutionResult, "Error: "+programErr.Stderr)
		h.sendTo(c, ws2.EventEditorError, "Code execution error: "+programErr.Message)
		h.broadcastToOthers(c, execute.SessionID, ws2.EventEditorError, "Code execution error: "+programErr.Message)
		return
	}

	// Infrastructure fault; the client-visible shape stays the same.
	h.logger.Errorw("execution infrastructure failure", "sessionId", execute.SessionID, "error", err)
	h.sendTo(c, ws2.EventExecutionResult, "Error: "+err.Error())
	h.sendTo(c, ws2.EventEditorError, "Code execution error: "+err.Error())
	h.broadcastToOthers(c, execute.SessionID, ws2.EventEditorError, "Code execution error: "+err.Error())
}

func (h *CollabMessageHandler) broadcastToOthers(c *Client, sessionID, event string, data any) {
	message, err := ws2.Encode(event, data)
	if err != nil {
		h.logger.Error("error encoding event", err)
		return
	}
	h.hub.BroadcastToOthers(c, sessionID, message)
}

func (h *CollabMessageHandler) broadcastToRoom(sessionID, event string, data any) {
	message, err := ws2.Encode(event, data)
	if err != nil {
		h.logger.Error("error encoding event", err)
		return
	}
	h.hub.BroadcastToRoom(sessionID, message)
}

func (h *CollabMessageHandler) sendTo(c *Client, event string, data any) {
	message, err := ws2.Encode(event, data)
	if err != nil {
		h.logger.Error("error encoding event", err)
		return
	}
	c.deliver(message)
}
