package websocketPkg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"SiteGuard/internal/entity"
	"SiteGuard/pkg/detector"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type IInference interface {
	detector.Model
	IsConnected() bool
	Reconnect() error
	Close()
}

type inferenceResponse struct {
	Predictions []entity.Prediction `json:"predictions"`
	Error       string              `json:"error,omitempty"`
}

type webSocketClient struct {
	url          string
	log          *logrus.Logger
	conn         *websocket.Conn
	mu           sync.Mutex
	requestMu    sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewInferenceClient dials the PPE model server in the background; a failed
// first attempt is retried on the next Predict call.
func NewInferenceClient(log *logrus.Logger) IInference {
	client := newClient(getWebSocketURL(), log)
	go client.connectInBackground()
	return client
}

func newClient(url string, log *logrus.Logger) *webSocketClient {
	return &webSocketClient{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (c *webSocketClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		c.log.Warnf("Initial connection to PPE detection service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Info("Successfully connected to PPE detection service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return errors.New("URL for PPE detection not configured")
	}

	c.log.Debugf("Connecting to PPE detection service at %s", c.url)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for PPE detection service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.New("not connected to PPE detection service")
	}

	return c.conn, nil
}

func (c *webSocketClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// Predict sends the encoded frame and waits for the matching reply. The
// model server answers in order on a single connection, so request/response
// pairs are serialized.
func (c *webSocketClient) Predict(ctx context.Context, frame detector.Frame) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	conn, err := c.getConnection()
	if err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to PPE detection service: %w", err)
		}
		conn, err = c.getConnection()
		if err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	err = conn.WriteMessage(websocket.BinaryMessage, frame.Encoded)
	c.mu.Unlock()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	readDeadline := time.Now().Add(c.readTimeout)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(readDeadline) {
		readDeadline = deadline
	}
	conn.SetReadDeadline(readDeadline)

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error reading prediction message: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var result inferenceResponse
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling prediction response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("model server: %s", result.Error)
	}

	c.log.WithFields(logrus.Fields{
		"frame_size":  len(frame.Encoded),
		"predictions": len(result.Predictions),
	}).Debug("Received response from PPE detection service")

	return result.Predictions, nil
}

func getWebSocketURL() string {
	url := os.Getenv("AI_PPE_DETECTION_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/ppe/ws"
	}
	return url
}
