package app

import (
	"context"

	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/presentation"
	"github.com/teslashibe/go-raspbot/pkg/resource"
	"github.com/teslashibe/go-raspbot/pkg/rps"
	"github.com/teslashibe/go-raspbot/pkg/vision"
)

// registerSubsystems binds every selectable mode to its builder. The
// builders close over the app, so each activation reads the vision
// config as it stands at that moment, dashboard edits included.
func (a *App) registerSubsystems() {
	camAndMotors := []resource.Device{resource.DeviceCamera, resource.DeviceMotors}
	camOnly := []resource.Device{resource.DeviceCamera}
	motorsOnly := []resource.Device{resource.DeviceMotors}

	a.registry.Register(modes.KindColorTrack, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: camAndMotors,
			New: func() (resource.Subsystem, error) {
				return vision.NewColorTrack(m.Color, a.trackCfg(), a.follower, a.visionDeps())
			},
		}
	})

	a.registry.Register(modes.KindFaceTrack, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: camAndMotors,
			New: func() (resource.Subsystem, error) {
				return vision.NewFaceTrack(a.trackCfg(), a.follower, a.visionDeps())
			},
		}
	})

	a.registry.Register(modes.KindGestureControl, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: camAndMotors,
			New: func() (resource.Subsystem, error) {
				return vision.NewGestureControl(a.trackCfg(), a.visionDeps())
			},
		}
	})

	a.registry.Register(modes.KindObjectRecognition, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: camOnly,
			New: func() (resource.Subsystem, error) {
				return vision.NewObjectRecognition(a.detectCfg(), a.visionDeps())
			},
		}
	})

	a.registry.Register(modes.KindLicensePlate, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: camOnly,
			New: func() (resource.Subsystem, error) {
				return vision.NewLicensePlate(a.detectCfg(), a.visionDeps())
			},
		}
	})

	a.registry.Register(modes.KindRpsGame, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: camAndMotors,
			New:     a.newRpsSession,
		}
	})

	a.registry.Register(modes.KindPresentation, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:    m,
			Devices: motorsOnly,
			New:     a.newShow,
		}
	})

	// Chat is built once at startup and survives across activations,
	// so the greeting plays once and the history carries over. The
	// local model is heavy enough that the arbiter reclaims memory
	// before each activation.
	a.registry.Register(modes.KindAiChat, func(m modes.Mode) resource.Spec {
		return resource.Spec{
			Mode:         m,
			Devices:      []resource.Device{resource.DeviceMicrophone, resource.DeviceMotors},
			NeedsReclaim: true,
			New: func() (resource.Subsystem, error) {
				return a.chat, nil
			},
		}
	})
}

// trackCfg is the capture config the fast tracking pipelines run at.
func (a *App) trackCfg() vision.Config {
	return a.visionMgr.GetConfig()
}

// detectCfg is the heavier geometry the detector pipelines run at,
// keeping the dashboard's model directory and threshold settings.
func (a *App) detectCfg() vision.Config {
	cfg := a.visionMgr.GetConfig()
	det := vision.DetectConfig()
	cfg.Width = det.Width
	cfg.Height = det.Height
	cfg.Framerate = det.Framerate
	cfg.Quality = det.Quality
	cfg.DetectEvery = det.DetectEvery
	return cfg
}

func (a *App) visionDeps() vision.Deps {
	deps := vision.Deps{
		Drive:    a.movement,
		Emotions: a.emotions,
		Speak:    a.outputs.Speak,
	}
	if a.webServer != nil {
		deps.Sink = a.webServer.SendFrame
	}
	return deps
}

// rpsSession owns the capture device for one game activation. The game
// itself only sees a gesture source, so the wrapper closes the camera
// and the scratch frame after the game returns.
type rpsSession struct {
	game     *rps.Game
	gestures *rps.CameraGestures
	cam      *vision.Camera
}

var _ resource.Subsystem = (*rpsSession)(nil)

func (s *rpsSession) Run(ctx context.Context) error {
	defer s.cam.Close()
	defer s.gestures.Close()
	return s.game.Run(ctx)
}

func (s *rpsSession) Status() string {
	return s.game.Status()
}

func (a *App) newRpsSession() (resource.Subsystem, error) {
	cam, err := vision.OpenCamera(a.trackCfg())
	if err != nil {
		return nil, err
	}
	gestures := rps.NewCameraGestures(cam, vision.NewGestureDetector())

	deps := rps.Deps{
		Gestures: gestures,
		Drive:    a.movement,
		Lights:   seqLights{a.renderer},
		Beeper:   buzzer{a.hw},
		Emotions: a.emotions,
	}
	if a.speaker != nil {
		deps.Voice = a.speaker
	}

	game, err := rps.New(rps.DefaultConfig(), deps)
	if err != nil {
		gestures.Close()
		cam.Close()
		return nil, err
	}
	return &rpsSession{game: game, gestures: gestures, cam: cam}, nil
}

func (a *App) newShow() (resource.Subsystem, error) {
	deps := presentation.Deps{
		Drive:    a.movement,
		Lights:   seqLights{a.renderer},
		Beeper:   buzzer{a.hw},
		Emotions: a.emotions,
	}
	if a.speaker != nil {
		deps.Voice = a.speaker
	}
	return presentation.New(presentation.DefaultConfig(), deps)
}
