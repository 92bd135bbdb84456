package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/chat"
	"github.com/Daffaariff/nawatech-chatbot/internal/metrics"
	"github.com/Daffaariff/nawatech-chatbot/internal/qa"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

// WebSocketHandler runs one chat session per connection. Each session owns a
// bounded message history; the answer is streamed word by word, followed by a
// completion frame carrying the evaluation.
type WebSocketHandler struct {
	engine        *qa.Engine
	maxHistoryLen int
}

func NewWebSocketHandler(engine *qa.Engine, maxHistoryLen int) *WebSocketHandler {
	return &WebSocketHandler{
		engine:        engine,
		maxHistoryLen: maxHistoryLen,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Chat session started")
	metrics.ChatSessions.Inc()

	history := chat.NewHistory(h.maxHistoryLen)

	defer func() {
		c.Close()
		metrics.ChatSessions.Dec()
		logger.Info("Chat session closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("Chat session read ended", zap.Error(err))
			break
		}

		switch msg.Type {
		case "query":
			if err := h.handleQuery(c, history, msg.Content); err != nil {
				logger.Error("Failed to stream response", zap.Error(err))
				h.sendError(c, "Failed to process query")
			}
		case "history":
			h.sendHistory(c, history)
		}
	}
}

func (h *WebSocketHandler) handleQuery(c *websocket.Conn, history *chat.History, queryText string) error {
	logger.Info("Processing chat query", zap.String("query", queryText))

	history.Add(chat.Message{Role: chat.RoleUser, Content: queryText})

	h.sendFrame(c, "status", "Processing query...")

	result := h.engine.GenerateResponse(context.Background(), queryText)

	words := splitIntoWords(result.Answer)
	for i, word := range words {
		frame := word
		if i < len(words)-1 {
			frame += " "
		}

		if err := h.sendFrame(c, "chunk", frame); err != nil {
			return err
		}
	}

	history.Add(chat.Message{
		Role:       chat.RoleAssistant,
		Content:    result.Answer,
		Evaluation: result.Evaluation,
	})

	return h.sendComplete(c, result)
}

func (h *WebSocketHandler) sendFrame(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, result *qa.Result) error {
	msg := map[string]interface{}{
		"type":       "complete",
		"message_id": result.ID,
		"evaluation": result.Evaluation,
		"latency_ms": result.LatencyMS,
	}
	if result.Evaluation != nil {
		msg["score_band"] = ScoreBand(result.Evaluation.Scores["overall"])
	}
	if result.Error != "" {
		msg["error"] = result.Error
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendHistory(c *websocket.Conn, history *chat.History) {
	if err := c.WriteJSON(map[string]interface{}{
		"type":     "history",
		"messages": history.Messages(),
	}); err != nil {
		logger.Error("Failed to send chat history", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
