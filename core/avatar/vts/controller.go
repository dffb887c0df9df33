// Package vts drives a VTube Studio model through its public websocket API.
package vts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	apiName    = "VTubeStudioPublicAPI"
	apiVersion = "1.0"

	mouthParameter = "MouthOpen"
	frameInterval  = 100 * time.Millisecond
)

// Controller keeps one authenticated connection to VTube Studio and
// animates the model's mouth while the talking signal is raised. Between
// replies it feeds a slow idle sway so the model does not freeze.
type Controller struct {
	url             string
	pluginName      string
	pluginDeveloper string
	authToken       string

	mu   sync.Mutex
	conn *websocket.Conn

	talking   atomic.Bool
	connected atomic.Bool

	stopOnce  sync.Once
	stopAnim  chan struct{}
	animDone  chan struct{}
	dropped   chan struct{}
	startedAt time.Time
}

type Option func(*Controller)

// WithURL overrides the default VTube Studio endpoint (ws://localhost:8001).
func WithURL(url string) Option {
	return func(c *Controller) { c.url = url }
}

// WithAuthToken reuses a token from a previous session, skipping the
// in-studio permission popup.
func WithAuthToken(token string) Option {
	return func(c *Controller) { c.authToken = token }
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		url:             "ws://localhost:8001",
		pluginName:      "AI VTuber",
		pluginDeveloper: "AI-VTuber-demo",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	APIName     string `json:"apiName"`
	APIVersion  string `json:"apiVersion"`
	RequestID   string `json:"requestID"`
	MessageType string `json:"messageType"`
	Data        any    `json:"data,omitempty"`
}

type response struct {
	MessageType string          `json:"messageType"`
	RequestID   string          `json:"requestID"`
	Data        json.RawMessage `json:"data"`
}

func newRequest(messageType string, data any) request {
	return request{
		APIName:     apiName,
		APIVersion:  apiVersion,
		RequestID:   uuid.NewString(),
		MessageType: messageType,
		Data:        data,
	}
}

// Connect dials VTube Studio, authenticates the plugin and starts the
// animation loop. A missing token triggers the token request flow, which
// requires the streamer to approve the plugin in the studio UI.
func (c *Controller) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to open socket connection to vtube studio: %w", err)
	}

	if c.authToken == "" {
		token, err := c.requestToken(conn)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to obtain plugin token: %w", err)
		}
		c.authToken = token
	}

	if err := c.authenticate(conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to authenticate plugin: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.stopAnim = make(chan struct{})
	c.animDone = make(chan struct{})
	c.dropped = make(chan struct{})
	c.stopOnce = sync.Once{}
	c.startedAt = time.Now()
	dropped := c.dropped
	c.mu.Unlock()
	c.connected.Store(true)

	go c.readResponses(conn, dropped)
	go c.animate()

	logger.Info("connected to vtube studio", "url", c.url)
	return nil
}

// Done reports the established link dropping unexpectedly. Deliberate
// disconnects never close the channel. Nil before the first Connect.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Controller) requestToken(conn *websocket.Conn) (string, error) {
	req := newRequest("AuthenticationTokenRequest", map[string]string{
		"pluginName":      c.pluginName,
		"pluginDeveloper": c.pluginDeveloper,
	})
	if err := conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}

	var resp response
	if err := conn.ReadJSON(&resp); err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.MessageType == "APIError" {
		return "", fmt.Errorf("vtube studio rejected token request: %s", string(resp.Data))
	}

	var data struct {
		AuthenticationToken string `json:"authenticationToken"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if data.AuthenticationToken == "" {
		return "", fmt.Errorf("vtube studio returned an empty token")
	}
	return data.AuthenticationToken, nil
}

func (c *Controller) authenticate(conn *websocket.Conn) error {
	req := newRequest("AuthenticationRequest", map[string]string{
		"pluginName":          c.pluginName,
		"pluginDeveloper":     c.pluginDeveloper,
		"authenticationToken": c.authToken,
	})
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send authentication request: %w", err)
	}

	var resp response
	if err := conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("failed to read authentication response: %w", err)
	}

	var data struct {
		Authenticated bool   `json:"authenticated"`
		Reason        string `json:"reason"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("failed to parse authentication response: %w", err)
	}
	if !data.Authenticated {
		return fmt.Errorf("vtube studio refused authentication: %s", data.Reason)
	}
	return nil
}

// SetTalking raises or lowers the talking signal. The animation loop picks
// the flag up on its next frame, so the call itself never blocks on the
// websocket.
func (c *Controller) SetTalking(_ context.Context, talking bool) error {
	if !c.connected.Load() {
		return fmt.Errorf("not connected to vtube studio")
	}
	c.talking.Store(talking)
	return nil
}

// Disconnect stops the animation loop and closes the connection.
// Idempotent.
func (c *Controller) Disconnect() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}

	c.stopOnce.Do(func() { close(c.stopAnim) })
	<-c.animDone

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close vtube studio connection: %w", err)
	}
	return nil
}

// animate injects mouth and idle motion at a fixed frame rate. While
// talking, the mouth oscillates; otherwise it stays shut and only the idle
// sway remains.
func (c *Controller) animate() {
	defer close(c.animDone)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopAnim:
			c.injectMouth(0)
			return
		case <-ticker.C:
			elapsed := time.Since(c.startedAt).Seconds()
			if c.talking.Load() {
				c.injectMouth(0.3 + 0.7*math.Abs(math.Sin(elapsed*8)))
			} else {
				c.injectMouth(0.05 * math.Abs(math.Sin(elapsed*0.5)))
			}
		}
	}
}

func (c *Controller) injectMouth(value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}

	req := newRequest("InjectParameterDataRequest", map[string]any{
		"faceFound": true,
		"mode":      "set",
		"parameterValues": []map[string]any{
			{"id": mouthParameter, "value": value},
		},
	})
	if err := c.conn.WriteJSON(req); err != nil {
		logger.Warn("failed to inject avatar parameter", "error", err)
	}
}

// readResponses drains replies to injected frames so the read buffer never
// fills up. When the read fails while the link is still supposed to be up,
// it tears the connection down and closes dropped so the supervisor
// reconnects.
func (c *Controller) readResponses(conn *websocket.Conn, dropped chan struct{}) {
	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("vtube studio connection dropped", "error", err)
			}
			break
		}
		if resp.MessageType == "APIError" {
			logger.Warn("vtube studio reported an error", "data", string(resp.Data))
		}
	}

	// A lost CAS means Disconnect owns the teardown.
	if !c.connected.CompareAndSwap(true, false) {
		return
	}

	c.stopOnce.Do(func() { close(c.stopAnim) })
	<-c.animDone

	c.mu.Lock()
	if c.conn == conn {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	close(dropped)
}
