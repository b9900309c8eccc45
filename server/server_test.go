package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"gptscope/tokenizer"
)

func dialTestServer(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(newTestServer(t).Handler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func roundTrip(t *testing.T, conn *websocket.Conn, req string) map[string]any {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write %s: %v", req, err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read after %s: %v", req, err)
	}
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, raw)
	}
	return resp
}

func TestWebSocketStep(t *testing.T) {
	conn, done := dialTestServer(t)
	defer done()

	resp := roundTrip(t, conn, `{"prompt":"hi","step":true}`)
	if errMsg, ok := resp["error"]; ok {
		t.Fatalf("step failed: %v", errMsg)
	}

	ids, ok := resp["token_ids"].([]any)
	if !ok || len(ids) != 4 {
		t.Fatalf("token_ids = %v, want 4 ids", resp["token_ids"])
	}
	if int(ids[0].(float64)) != tokenizer.BOS {
		t.Fatalf("history does not start with BOS: %v", ids)
	}

	sampled := resp["sampled"].(map[string]any)
	if id := int(sampled["id"].(float64)); id < 0 || id >= tokenizer.VocabSize {
		t.Fatalf("sampled id %d out of range", id)
	}

	matrix := resp["attention"].(map[string]any)["matrix"].([]any)
	if len(matrix) != 3 {
		t.Fatalf("attention window has %d rows, want 3", len(matrix))
	}
	for _, row := range matrix {
		if len(row.([]any)) != 3 {
			t.Fatalf("attention window is not square")
		}
	}
}

// Protocol errors are answered in-band; the connection and session survive.
func TestWebSocketErrorKeepsConnection(t *testing.T) {
	conn, done := dialTestServer(t)
	defer done()

	resp := roundTrip(t, conn, `{"prompt":"hi","step":true}`)
	if _, ok := resp["error"]; ok {
		t.Fatalf("priming step failed: %v", resp["error"])
	}

	resp = roundTrip(t, conn, `oops not json`)
	msg, ok := resp["error"].(string)
	if !ok || msg == "" {
		t.Fatalf("malformed request did not yield an error payload: %v", resp)
	}

	// The session kept its history: the next step extends it by one token.
	resp = roundTrip(t, conn, `{"step":true}`)
	if errMsg, ok := resp["error"]; ok {
		t.Fatalf("step after error failed: %v", errMsg)
	}
	if ids := resp["token_ids"].([]any); len(ids) != 5 {
		t.Fatalf("token_ids after error = %d ids, want 5", len(ids))
	}
}
