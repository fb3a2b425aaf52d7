package raspbot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-raspbot/internal/httpc"
)

// HTTPBridge implements Controller against the bridge daemon's HTTP API.
// This is the controller used in production.
type HTTPBridge struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPBridge creates a bridge client. Hardware calls are local and
// must fail fast, so the client timeout is short.
func NewHTTPBridge(host string) *HTTPBridge {
	return &HTTPBridge{
		BaseURL: fmt.Sprintf("http://%s:9090", host),
		client:  httpc.NewClient(2 * time.Second),
	}
}

// Drive sends a mecanum drive command.
func (b *HTTPBridge) Drive(vx, vy, omega float64, speed int) error {
	payload := map[string]interface{}{
		"vx":    vx,
		"vy":    vy,
		"omega": omega,
		"speed": speed,
	}
	return b.postJSON("/api/motors", payload)
}

// Stop halts all motors.
func (b *HTTPBridge) Stop() error {
	return b.postJSON("/api/motors/stop", nil)
}

// SetAll paints the whole strip with one color.
func (b *HTTPBridge) SetAll(c Color) error {
	return b.postJSON("/api/leds", map[string]interface{}{"color": int(c)})
}

// Set paints a single LED.
func (b *HTTPBridge) Set(index int, c Color) error {
	return b.postJSON("/api/leds", map[string]interface{}{"index": index, "color": int(c)})
}

// Off turns the strip off.
func (b *HTTPBridge) Off() error {
	return b.postJSON("/api/leds/off", nil)
}

// Beep sounds the buzzer for the given duration.
func (b *HTTPBridge) Beep(d time.Duration) error {
	return b.postJSON("/api/beep", map[string]interface{}{"ms": d.Milliseconds()})
}

// SetServo positions a camera gimbal servo.
func (b *HTTPBridge) SetServo(channel, angle int) error {
	if angle < 0 {
		angle = 0
	}
	if angle > 180 {
		angle = 180
	}
	return b.postJSON("/api/servo", map[string]interface{}{"channel": channel, "angle": angle})
}

// Sensors reads one sensor frame.
func (b *HTTPBridge) Sensors() (SensorFrame, error) {
	var frame SensorFrame
	if err := b.getJSON("/api/sensors", &frame); err != nil {
		return SensorFrame{}, err
	}
	return frame, nil
}

// ReadIR reads the IR receiver state.
func (b *HTTPBridge) ReadIR() (byte, bool, error) {
	var ir struct {
		Code  int  `json:"code"`
		Fresh bool `json:"fresh"`
	}
	if err := b.getJSON("/api/ir", &ir); err != nil {
		return 0, false, err
	}
	return byte(ir.Code), ir.Fresh, nil
}

// Ping checks bridge liveness.
func (b *HTTPBridge) Ping() error {
	resp, err := b.client.Get(b.BaseURL + "/api/health")
	if err != nil {
		return fmt.Errorf("bridge health request failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (b *HTTPBridge) postJSON(path string, payload map[string]interface{}) error {
	body := "{}"
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = string(data)
	}

	resp, err := b.client.Post(b.BaseURL+path, "application/json", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge request %s failed: %w", path, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge request %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func (b *HTTPBridge) getJSON(path string, out interface{}) error {
	resp, err := b.client.Get(b.BaseURL + path)
	if err != nil {
		return fmt.Errorf("bridge request %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge request %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
