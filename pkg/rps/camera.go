package rps

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/vision"
)

// CameraGestures adapts the capture device and finger counter into a
// GestureSource. It owns one scratch frame that every Sample reuses,
// so a single goroutine at a time may call it. The game loop is that
// goroutine.
type CameraGestures struct {
	cam *vision.Camera
	det *vision.GestureDetector
	img gocv.Mat
}

var _ GestureSource = (*CameraGestures)(nil)

// NewCameraGestures wraps an open camera. The camera stays owned by
// the caller; Close here releases only the scratch frame.
func NewCameraGestures(cam *vision.Camera, det *vision.GestureDetector) *CameraGestures {
	return &CameraGestures{cam: cam, det: det, img: gocv.NewMat()}
}

// Sample grabs a frame and counts the fingers on it.
func (s *CameraGestures) Sample(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if err := s.cam.Read(&s.img); err != nil {
		return 0, false, err
	}
	fc, err := s.det.Count(s.img)
	if err != nil {
		return 0, false, err
	}
	return fc.Fingers, fc.Found, nil
}

// Close releases the scratch frame.
func (s *CameraGestures) Close() error {
	return s.img.Close()
}
