package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/finsight-ai/finsight/bot"
	"github.com/finsight-ai/finsight/llm"
)

// wsFrame is the wire format in both directions: clients send {content},
// answers stream back as {content} fragments with done=true on the final
// frame.
type wsFrame struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from the same origin; cross-origin tooling like wscat
	// is also allowed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Conversation history lives for the duration of the connection.
	var history []llm.Message

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("websocket read: %v", err)
			}
			return
		}

		if frame.Content == "" {
			if err := conn.WriteJSON(wsFrame{Error: "content is required", Done: true}); err != nil {
				return
			}
			continue
		}

		_, updated, err := s.assistant.StreamQuery(r.Context(), bot.QueryOptions{
			Query:   frame.Content,
			Limit:   defaultQueryLimit,
			Surface: "ws",
		}, history, func(chunk string) error {
			return conn.WriteJSON(wsFrame{Content: chunk})
		})
		if err != nil {
			msg := "query failed"
			if errors.Is(err, llm.ErrBackendUnavailable) {
				msg = "model backend unavailable"
			}
			s.logger.Printf("websocket query: %v", err)
			if err := conn.WriteJSON(wsFrame{Error: msg, Done: true}); err != nil {
				return
			}
			continue
		}

		history = updated
		if err := conn.WriteJSON(wsFrame{Done: true}); err != nil {
			return
		}
	}
}
