package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/codepair/codepair/lib/db"
	ws2 "github.com/codepair/codepair/lib/models/ws"
	"github.com/codepair/codepair/lib/runner"
	"github.com/codepair/codepair/lib/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestHandler(t *testing.T, saveInterval time.Duration) (*CollabMessageHandler, *db.MemoryDataStore) {
	store := db.NewMemoryDataStore()
	logger := zaptest.NewLogger(t).Sugar()
	codeRunner := runner.New(runner.Options{Command: "sh", Arg: "-c"}, logger)
	handler := NewCollabMessageHandler(store, NewHub(), throttle.NewGate(saveInterval), codeRunner, logger)
	return handler, store
}

func newTestSession(t *testing.T, store *db.MemoryDataStore) string {
	created, err := store.CreateSession(nil)
	require.NoError(t, err)
	return created.ID
}

// collectEvents drains everything delivered to c within wait.
func collectEvents(c *Client, wait time.Duration) []ws2.Envelope {
	deadline := time.After(wait)
	var out []ws2.Envelope
	for {
		select {
		case raw, ok := <-c.Send:
			if !ok {
				return out
			}
			var envelope ws2.Envelope
			if err := json.Unmarshal(raw, &envelope); err == nil {
				out = append(out, envelope)
			}
		case <-deadline:
			return out
		}
	}
}

func eventsNamed(events []ws2.Envelope, name string) []ws2.Envelope {
	var out []ws2.Envelope
	for _, e := range events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func decodeString(t *testing.T, envelope ws2.Envelope) string {
	var s string
	require.NoError(t, json.Unmarshal(envelope.Data, &s))
	return s
}

func TestJoinSession_NotifiesOthersOnly(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	resident := newTestClient(handler.Hub(), "resident")
	handler.HandleJoinSession(resident, ws2.JoinSession{SessionID: sessionID, Username: "first"})

	joiner := newTestClient(handler.Hub(), "joiner")
	username := gofakeit.Username()
	handler.HandleJoinSession(joiner, ws2.JoinSession{SessionID: sessionID, Username: username})

	joined := eventsNamed(collectEvents(resident, 50*time.Millisecond), ws2.EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, username, decodeString(t, joined[0]))

	assert.Empty(t, collectEvents(joiner, 20*time.Millisecond), "the joiner must not be notified about itself")
	assert.True(t, handler.Hub().InRoom(joiner, sessionID))
}

func TestLeaveSession_NotifiesRemainingMembers(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	staying := newTestClient(handler.Hub(), "staying")
	leaving := newTestClient(handler.Hub(), "leaving")
	handler.HandleJoinSession(staying, ws2.JoinSession{SessionID: sessionID, Username: "staying"})
	handler.HandleJoinSession(leaving, ws2.JoinSession{SessionID: sessionID, Username: "leaving"})

	handler.HandleLeaveSession(leaving, ws2.LeaveSession{SessionID: sessionID, Username: "leaving"})

	events := collectEvents(staying, 50*time.Millisecond)
	require.Len(t, eventsNamed(events, ws2.EventUserJoined), 1)
	left := eventsNamed(events, ws2.EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "leaving", decodeString(t, left[0]))
	assert.False(t, handler.Hub().InRoom(leaving, sessionID))
}

func TestCodeChange_ForwardsVerbatimToRoomOnly(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)
	otherSessionID := newTestSession(t, store)

	editor := newTestClient(handler.Hub(), "editor")
	watcher := newTestClient(handler.Hub(), "watcher")
	outsider := newTestClient(handler.Hub(), "outsider")
	handler.Hub().JoinRoom(editor, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)
	handler.Hub().JoinRoom(outsider, otherSessionID)

	code := "console.log('hi there')\n// trailing comment"
	handler.HandleCodeChange(editor, ws2.CodeChange{SessionID: sessionID, Code: code, Username: "editor"})

	updates := eventsNamed(collectEvents(watcher, 50*time.Millisecond), ws2.EventCodeUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, code, decodeString(t, updates[0]))

	assert.Empty(t, collectEvents(editor, 20*time.Millisecond), "the editor never receives its own codeUpdate")
	assert.Empty(t, collectEvents(outsider, 20*time.Millisecond), "clients outside the room receive nothing")
}

func TestCodeChange_PersistenceIsThrottled(t *testing.T) {
	handler, store := newTestHandler(t, time.Hour)
	sessionID := newTestSession(t, store)

	editor := newTestClient(handler.Hub(), "editor")
	handler.Hub().JoinRoom(editor, sessionID)

	handler.HandleCodeChange(editor, ws2.CodeChange{SessionID: sessionID, Code: "v1", Username: "editor"})
	require.Eventually(t, func() bool {
		retrieved, err := store.GetSession(sessionID)
		return err == nil && len(retrieved.Versions) == 1
	}, time.Second, 5*time.Millisecond)

	handler.HandleCodeChange(editor, ws2.CodeChange{SessionID: sessionID, Code: "v2", Username: "editor"})
	time.Sleep(50 * time.Millisecond)

	retrieved, err := store.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, retrieved.Versions, "the second change inside the window is dropped, not queued")
}

func TestCodeChange_SnapshotsAppendInOrder(t *testing.T) {
	handler, store := newTestHandler(t, time.Millisecond)
	sessionID := newTestSession(t, store)

	editor := newTestClient(handler.Hub(), "editor")
	handler.Hub().JoinRoom(editor, sessionID)

	snapshots := []string{"v1", "v2", "v3", "v4"}
	for i, snapshot := range snapshots {
		handler.HandleCodeChange(editor, ws2.CodeChange{SessionID: sessionID, Code: snapshot, Username: "editor"})
		wanted := i + 1
		require.Eventually(t, func() bool {
			retrieved, err := store.GetSession(sessionID)
			return err == nil && len(retrieved.Versions) == wanted
		}, time.Second, 2*time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	retrieved, err := store.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, snapshots, retrieved.Versions)
}

func TestCodeChange_PersistenceFailureDoesNotBlockBroadcast(t *testing.T) {
	handler, _ := newTestHandler(t, time.Minute)

	editor := newTestClient(handler.Hub(), "editor")
	watcher := newTestClient(handler.Hub(), "watcher")
	// The session id is unknown to the store, so the append fails.
	handler.Hub().JoinRoom(editor, "ghost-session")
	handler.Hub().JoinRoom(watcher, "ghost-session")

	handler.HandleCodeChange(editor, ws2.CodeChange{SessionID: "ghost-session", Code: "v1", Username: "editor"})

	updates := eventsNamed(collectEvents(watcher, 50*time.Millisecond), ws2.EventCodeUpdate)
	assert.Len(t, updates, 1, "the live broadcast happens even when the save fails")
}

func TestCursorChange_ForwardsPosition(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	mover := newTestClient(handler.Hub(), "mover")
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(mover, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	handler.HandleCursorChange(mover, ws2.CursorChange{
		SessionID:      sessionID,
		Username:       "mover",
		CursorPosition: ws2.CursorPosition{Line: 12, Column: 4},
	})

	moved := eventsNamed(collectEvents(watcher, 50*time.Millisecond), ws2.EventCursorChanged)
	require.Len(t, moved, 1)

	var payload ws2.CursorBroadcast
	require.NoError(t, json.Unmarshal(moved[0].Data, &payload))
	assert.Equal(t, "mover", payload.Username)
	assert.Equal(t, 12, payload.CursorPosition.Line)
	assert.Equal(t, 4, payload.CursorPosition.Column)
}

func TestEditHighlight_InvalidPayloadsAreDroppedSilently(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	highlighter := newTestClient(handler.Hub(), "highlighter")
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(highlighter, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	line := 10.0
	invalid := []ws2.EditHighlight{
		{SessionID: sessionID, LineNumber: nil, EditorID: "e1", Timestamp: 1234},
		{SessionID: sessionID, LineNumber: &line, EditorID: "", Timestamp: 1234},
		{SessionID: sessionID, LineNumber: &line, EditorID: "e1", Timestamp: 0},
	}
	for _, highlight := range invalid {
		handler.HandleEditHighlight(highlighter, highlight)
	}

	assert.Empty(t, collectEvents(watcher, 30*time.Millisecond))
}

func TestEditHighlight_NonNumericLineNumberIsDroppedAtDecode(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	highlighter := newTestClient(handler.Hub(), "highlighter")
	highlighter.Handler = handler
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(highlighter, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	raw := []byte(`{"sessionId":"` + sessionID + `","lineNumber":"abc","editorId":"e1","timestamp":1234}`)
	highlighter.dispatch(ws2.Envelope{Event: ws2.EventEditHighlight, Data: raw}, zaptest.NewLogger(t).Sugar())

	assert.Empty(t, collectEvents(watcher, 30*time.Millisecond))
}

func TestEditHighlight_ValidPayloadCarriesExactlyThreeFields(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	highlighter := newTestClient(handler.Hub(), "highlighter")
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(highlighter, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	line := 10.0
	handler.HandleEditHighlight(highlighter, ws2.EditHighlight{
		SessionID:  sessionID,
		LineNumber: &line,
		EditorID:   "e1",
		Timestamp:  1234,
	})

	highlights := eventsNamed(collectEvents(watcher, 50*time.Millisecond), ws2.EventEditHighlight)
	require.Len(t, highlights, 1)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(highlights[0].Data, &fields))
	assert.Equal(t, map[string]any{
		"lineNumber": 10.0,
		"editorId":   "e1",
		"timestamp":  1234.0,
	}, fields, "the session id is stripped from the broadcast")

	assert.Empty(t, collectEvents(highlighter, 20*time.Millisecond))
}

func TestEditorError_RelayedToOthers(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	reporter := newTestClient(handler.Hub(), "reporter")
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(reporter, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	handler.HandleEditorError(reporter, ws2.EditorError{SessionID: sessionID, ErrorMessage: "editor blew up"})

	relayed := eventsNamed(collectEvents(watcher, 50*time.Millisecond), ws2.EventEditorError)
	require.Len(t, relayed, 1)
	assert.Equal(t, "editor blew up", decodeString(t, relayed[0]))
}

func TestExecuteCode_SuccessReachesRoomAndSender(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	executor := newTestClient(handler.Hub(), "executor")
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(executor, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	handler.HandleExecuteCode(executor, ws2.ExecuteCode{
		SessionID: sessionID,
		Code:      `printf 'Hello World'`,
		Username:  "executor",
	})

	watcherEvents := collectEvents(watcher, time.Second)
	results := eventsNamed(watcherEvents, ws2.EventExecutionResult)
	require.Len(t, results, 1)
	assert.Equal(t, "Hello World", decodeString(t, results[0]))
	assert.Empty(t, eventsNamed(watcherEvents, ws2.EventEditorError))

	// The sender gets the room broadcast plus the direct emit.
	senderEvents := collectEvents(executor, 100*time.Millisecond)
	senderResults := eventsNamed(senderEvents, ws2.EventExecutionResult)
	require.Len(t, senderResults, 2)
	for _, result := range senderResults {
		assert.Equal(t, "Hello World", decodeString(t, result))
	}
	assert.Empty(t, eventsNamed(senderEvents, ws2.EventEditorError))
}

func TestExecuteCode_ProgramFailure(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	executor := newTestClient(handler.Hub(), "executor")
	watcher := newTestClient(handler.Hub(), "watcher")
	handler.Hub().JoinRoom(executor, sessionID)
	handler.Hub().JoinRoom(watcher, sessionID)

	handler.HandleExecuteCode(executor, ws2.ExecuteCode{
		SessionID: sessionID,
		Code:      `printf 'bad thing happened\nmore detail\n' 1>&2`,
		Username:  "executor",
	})

	senderEvents := collectEvents(executor, time.Second)
	results := eventsNamed(senderEvents, ws2.EventExecutionResult)
	require.Len(t, results, 1)
	assert.Contains(t, decodeString(t, results[0]), "Error: bad thing happened")

	senderErrors := eventsNamed(senderEvents, ws2.EventEditorError)
	require.Len(t, senderErrors, 1)
	assert.Equal(t, "Code execution error: bad thing happened", decodeString(t, senderErrors[0]))

	watcherEvents := collectEvents(watcher, 100*time.Millisecond)
	watcherErrors := eventsNamed(watcherEvents, ws2.EventEditorError)
	require.Len(t, watcherErrors, 1)
	assert.Equal(t, "Code execution error: bad thing happened", decodeString(t, watcherErrors[0]))
	assert.Empty(t, eventsNamed(watcherEvents, ws2.EventExecutionResult),
		"failed output goes to the sender only")
}

func TestExecuteCode_PersistsSnapshot(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionID := newTestSession(t, store)

	executor := newTestClient(handler.Hub(), "executor")
	handler.Hub().JoinRoom(executor, sessionID)

	handler.HandleExecuteCode(executor, ws2.ExecuteCode{
		SessionID: sessionID,
		Code:      `printf 'x'`,
		Username:  "executor",
	})

	require.Eventually(t, func() bool {
		retrieved, err := store.GetSession(sessionID)
		return err == nil && len(retrieved.Versions) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDisconnect_LeavesEveryRoom(t *testing.T) {
	handler, store := newTestHandler(t, time.Minute)
	sessionA := newTestSession(t, store)
	sessionB := newTestSession(t, store)

	leaving := newTestClient(handler.Hub(), "leaving")
	watcherA := newTestClient(handler.Hub(), "watcherA")
	watcherB := newTestClient(handler.Hub(), "watcherB")
	handler.Hub().JoinRoom(leaving, sessionA)
	handler.Hub().JoinRoom(leaving, sessionB)
	handler.Hub().JoinRoom(watcherA, sessionA)
	handler.Hub().JoinRoom(watcherB, sessionB)

	handler.HandleDisconnect(leaving, zaptest.NewLogger(t).Sugar())

	assert.False(t, handler.Hub().InRoom(leaving, sessionA))
	assert.False(t, handler.Hub().InRoom(leaving, sessionB))

	handler.Hub().BroadcastToRoom(sessionA, []byte(`{"event":"codeUpdate","data":"z"}`))
	handler.Hub().BroadcastToRoom(sessionB, []byte(`{"event":"codeUpdate","data":"z"}`))
	assert.Empty(t, collectEvents(leaving, 30*time.Millisecond))
	assert.Len(t, collectEvents(watcherA, 50*time.Millisecond), 1)
	assert.Len(t, collectEvents(watcherB, 50*time.Millisecond), 1)
}
