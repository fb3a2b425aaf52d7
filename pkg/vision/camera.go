package vision

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/internal/log"
)

// FrameSink receives JPEG-encoded frames for the dashboard camera
// stream. Must not block; drop frames instead.
type FrameSink func(jpeg []byte)

// Camera wraps a V4L2 capture configured for one pipeline.
type Camera struct {
	cfg Config
	cap *gocv.VideoCapture
}

// OpenCamera opens the capture device with the given config. If the
// device is busy, likely a previous holder that died without closing,
// it kicks whatever holds it and retries once.
func OpenCamera(cfg Config) (*Camera, error) {
	device := fmt.Sprintf("/dev/video%d", cfg.Device)

	cap, err := openCapture(cfg)
	if err != nil {
		log.L().Warn("camera open failed, kicking device holder",
			"device", device, "error", err)
		_ = exec.Command("fuser", "-k", device).Run()
		time.Sleep(500 * time.Millisecond)

		cap, err = openCapture(cfg)
		if err != nil {
			return nil, fmt.Errorf("open camera %s: %w", device, err)
		}
	}

	return &Camera{cfg: cfg, cap: cap}, nil
}

func openCapture(cfg Config) (*gocv.VideoCapture, error) {
	cap, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, err
	}
	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	return cap, nil
}

// Read grabs the next frame into img.
func (c *Camera) Read(img *gocv.Mat) error {
	if ok := c.cap.Read(img); !ok {
		return errors.New("camera read failed")
	}
	if img.Empty() {
		return errors.New("camera returned empty frame")
	}
	return nil
}

// Config returns the capture configuration in effect.
func (c *Camera) Config() Config {
	return c.cfg
}

// Close releases the capture device.
func (c *Camera) Close() error {
	return c.cap.Close()
}

// EncodeJPEG compresses a frame for the dashboard stream. The returned
// slice is a copy and safe to hold after the Mat is reused.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
