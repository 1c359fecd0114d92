package analysisHandler

import (
	"SiteGuard/internal/api/analysis"
	"SiteGuard/internal/middleware"
	contextPkg "SiteGuard/pkg/context"
	"SiteGuard/pkg/log"
	"SiteGuard/pkg/response"
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
)

const streamReadTimeout = 60 * time.Second

// handleStream runs every binary frame through the compliance pipeline and
// answers with the same payload as POST /analyses/filtered. Failed frames
// get an error message; the connection stays open.
func (h *AnalysisHandler) handleStream(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	if requestID == "" {
		requestID = "unknown"
	}
	ctx := contextPkg.WithRequestID(context.Background(), requestID)

	h.log.WithField("request_id", requestID).Info("Analysis stream client connected")
	defer h.log.WithField("request_id", requestID).Info("Analysis stream client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("Analysis stream error: %v", err)
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		var reply interface{}
		if err := h.utils.SniffImage(message); err != nil {
			reply = streamError(analysis.ErrInvalidImage)
		} else if result, err := h.analysisService.AnalyzeFiltered(ctx, message); err != nil {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Error processing stream frame")
			reply = streamError(err)
		} else {
			reply = result
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			return
		}
		if err := c.WriteJSON(reply); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			return
		}
	}
}

func streamError(err error) analysis.StreamError {
	code := response.StatusCode(err)
	msg := err.Error()
	if code >= 500 {
		msg = "object detection failed"
	}
	return analysis.StreamError{Error: msg, Code: code}
}
