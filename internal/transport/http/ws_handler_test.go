package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketSubmissionFlow(t *testing.T) {
	env := newTestEnv(t)

	var created pollBody
	if status := env.do(t, http.MethodPost, "/polls", env.token(t, true), samplePoll(), &created); status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", status)
	}

	u := "ws" + env.server.URL[len("http"):] + "/ws/process"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	oa := created.Questions[0]
	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"poll_id": created.ID,
			"questions": []map[string]any{
				{"question_id": oa.ID, "answers": []map[string]any{{"answer_id": oa.Answers[0].ID}}},
			},
		},
	}

	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	first := readResult(t, conn)
	if first.Data.PollID != created.ID || len(first.Data.Results) != 1 {
		t.Fatalf("unexpected result %+v", first)
	}
	for _, ok := range first.Data.Results[0] {
		if ok {
			t.Fatalf("wrong answer scored true")
		}
	}

	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write resubmit: %v", err)
	}
	second := readResult(t, conn)
	if second.UserID != first.UserID {
		t.Fatalf("expected resubmission for user %d, got %d", first.UserID, second.UserID)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	typ, _ := readMessage(t, conn)
	if typ != "error" {
		t.Fatalf("expected error for unsupported type, got %s", typ)
	}
}

func TestWebSocketRejectsUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + env.server.URL[len("http"):] + "/ws/process?userId=99"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}

func readResult(t *testing.T, conn *websocket.Conn) processBody {
	t.Helper()
	var msg struct {
		Type    string      `json:"type"`
		Payload processBody `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "result" {
		t.Fatalf("expected result message, got %s", msg.Type)
	}
	return msg.Payload
}
