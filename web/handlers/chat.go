package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/lumikid/lumikid/internal/assistant"
	"github.com/lumikid/lumikid/internal/llm"
)

// wsTurnTimeout bounds one assistant turn over a websocket.
const wsTurnTimeout = 2 * time.Minute

// ChatHandlers exposes the assistant over SSE and websocket.
type ChatHandlers struct {
	assistant *assistant.Assistant
}

// NewChatHandlers creates the chat handler set.
func NewChatHandlers(a *assistant.Assistant) *ChatHandlers {
	return &ChatHandlers{assistant: a}
}

type chatRequest struct {
	ChildID string        `json:"child_id"`
	Message string        `json:"message"`
	History []llm.Message `json:"history,omitempty"`
}

// HandleChatStream handles POST /api/chat/stream: one assistant turn,
// streamed as server-sent events. Each event is one JSON-encoded
// assistant.Event; the final done event carries the trimmed history.
func (h *ChatHandlers) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "NO_STREAMING", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(ev assistant.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("handlers: encode chat event: %v", err)
			return
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(data)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	_, err := h.assistant.Chat(r.Context(), req.ChildID, req.Message, req.History, emit)
	if err != nil {
		// Headers are already sent; deliver the failure as an event.
		emit(assistant.Event{Type: "error", Content: err.Error()})
	}
}

// HandleChatWS handles GET /api/chat/ws: a websocket session carrying one
// chat request per client message, with events streamed back as JSON.
func (h *ChatHandlers) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("handlers: websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	for {
		var req chatRequest
		if err := readWSJSON(r.Context(), conn, &req); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}

		turnCtx, cancel := context.WithTimeout(r.Context(), wsTurnTimeout)
		emit := func(ev assistant.Event) {
			if err := writeWSJSON(turnCtx, conn, ev); err != nil {
				log.Printf("handlers: websocket write: %v", err)
			}
		}
		if _, err := h.assistant.Chat(turnCtx, req.ChildID, req.Message, req.History, emit); err != nil {
			emit(assistant.Event{Type: "error", Content: err.Error()})
		}
		cancel()
	}
}

func readWSJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeWSJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
