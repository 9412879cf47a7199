package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestSocket(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(s)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWebSocketStreamsAnswer(t *testing.T) {
	s := newTestServer(serverOptions{chunks: rankedChunks(), answer: "streamed answer"})
	conn := dialTestSocket(t, s)

	if err := conn.WriteJSON(wsFrame{Content: "What is the Sharpe Ratio?"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var answer strings.Builder
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Error != "" {
			t.Fatalf("unexpected error frame: %s", frame.Error)
		}
		answer.WriteString(frame.Content)
		if frame.Done {
			break
		}
	}

	if answer.String() != "streamed answer" {
		t.Fatalf("unexpected streamed answer: %q", answer.String())
	}
}

func TestWebSocketEmptyContent(t *testing.T) {
	s := newTestServer(serverOptions{answer: "unused"})
	conn := dialTestSocket(t, s)

	if err := conn.WriteJSON(wsFrame{}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Error == "" || !frame.Done {
		t.Fatalf("expected terminal error frame, got %+v", frame)
	}
}

func TestWebSocketKeepsHistoryAcrossTurns(t *testing.T) {
	s := newTestServer(serverOptions{answer: "turn answer"})
	conn := dialTestSocket(t, s)

	for turn := 0; turn < 2; turn++ {
		if err := conn.WriteJSON(wsFrame{Content: "question"}); err != nil {
			t.Fatalf("write frame: %v", err)
		}
		for {
			var frame wsFrame
			if err := conn.ReadJSON(&frame); err != nil {
				t.Fatalf("turn %d read frame: %v", turn, err)
			}
			if frame.Error != "" {
				t.Fatalf("turn %d unexpected error: %s", turn, frame.Error)
			}
			if frame.Done {
				break
			}
		}
	}
}
