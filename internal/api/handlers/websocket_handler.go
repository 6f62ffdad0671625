package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/auth"
	"github.com/rankontop/backend/pkg/logger"
)

type WebSocketHandler struct {
	analyzer Analyzer
	timeout  time.Duration
}

func NewWebSocketHandler(analyzer Analyzer, timeout time.Duration) *WebSocketHandler {
	if timeout == 0 {
		timeout = time.Minute
	}
	return &WebSocketHandler{
		analyzer: analyzer,
		timeout:  timeout,
	}
}

type analyzeMessage struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Keyword string `json:"keyword"`
	AppID   string `json:"app_id"`
}

// HandleConnection serves analyze requests over one socket. The identity is
// set on the upgrade request by the auth middleware.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	identity, _ := c.Locals(auth.IdentityKey).(string)
	logger.Info("WebSocket connection established", zap.String("identity", identity))

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("identity", identity))
	}()

	for {
		var msg analyzeMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "analyze" {
			h.sendError(c, 400, "unsupported message type")
			continue
		}

		if err := h.runAnalysis(c, identity, msg); err != nil {
			logger.Warn("Failed to write WebSocket response", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) runAnalysis(c *websocket.Conn, identity string, msg analyzeMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	target := analysis.Target{URL: msg.URL, Keyword: msg.Keyword, AppID: msg.AppID}

	if err := c.WriteJSON(map[string]interface{}{
		"type":    "status",
		"content": "Analyzing " + target.Normalize().Label() + "...",
	}); err != nil {
		return err
	}

	rec, err := h.analyzer.Analyze(ctx, identity, target)
	if err != nil {
		status, errMsg := analysisStatus(err)
		if status >= 500 {
			logger.Error("WebSocket analysis failed", zap.Error(err))
		}
		return h.sendError(c, status, errMsg)
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"record": rec,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, status int, errorMsg string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":   "error",
		"status": status,
		"error":  errorMsg,
	})
}
