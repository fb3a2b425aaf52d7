package tracking

import "time"

// TuningParams is the dashboard's view of the steering config. Zero
// fields in a set request mean "leave unchanged" so the UI can adjust
// one slider without knowing the rest.
type TuningParams struct {
	Kp             float64 `json:"kp,omitempty"`
	Kd             float64 `json:"kd,omitempty"`
	DeadZone       float64 `json:"dead_zone,omitempty"`
	MaxOmega       float64 `json:"max_omega,omitempty"`
	NearArea       float64 `json:"near_area,omitempty"`
	FarArea        float64 `json:"far_area,omitempty"`
	Speed          int     `json:"speed,omitempty"`
	SmoothingAlpha float64 `json:"smoothing_alpha,omitempty"`
	LostTimeoutMS  int     `json:"lost_timeout_ms,omitempty"`
}

// GetTuningParams reports the follower's active parameters.
func (f *Follower) GetTuningParams() TuningParams {
	cfg := f.Config()
	return TuningParams{
		Kp:             cfg.Kp,
		Kd:             cfg.Kd,
		DeadZone:       cfg.DeadZone,
		MaxOmega:       cfg.MaxOmega,
		NearArea:       cfg.NearArea,
		FarArea:        cfg.FarArea,
		Speed:          cfg.Speed,
		SmoothingAlpha: cfg.SmoothingAlpha,
		LostTimeoutMS:  int(cfg.LostTimeout / time.Millisecond),
	}
}

// SetTuningParams applies the non-zero fields of p on top of the
// current config. The merged config must still validate; on problems
// nothing is applied and the problem list is returned.
func (f *Follower) SetTuningParams(p TuningParams) []string {
	cfg := f.Config()
	if p.Kp != 0 {
		cfg.Kp = p.Kp
	}
	if p.Kd != 0 {
		cfg.Kd = p.Kd
	}
	if p.DeadZone != 0 {
		cfg.DeadZone = p.DeadZone
	}
	if p.MaxOmega != 0 {
		cfg.MaxOmega = p.MaxOmega
	}
	if p.NearArea != 0 {
		cfg.NearArea = p.NearArea
	}
	if p.FarArea != 0 {
		cfg.FarArea = p.FarArea
	}
	if p.Speed != 0 {
		cfg.Speed = p.Speed
	}
	if p.SmoothingAlpha != 0 {
		cfg.SmoothingAlpha = p.SmoothingAlpha
	}
	if p.LostTimeoutMS != 0 {
		cfg.LostTimeout = time.Duration(p.LostTimeoutMS) * time.Millisecond
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return problems
	}
	f.SetConfig(cfg)
	return nil
}
