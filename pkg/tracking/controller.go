package tracking

// Controller is a PD loop on the normalized horizontal offset of the
// target in the frame (-1 = left edge, +1 = right edge). It outputs a
// clockwise rotation command in -1..1 for the drive base.
type Controller struct {
	kp       float64
	kd       float64
	deadZone float64
	maxOmega float64

	lastErr float64
	hasLast bool
}

// NewController builds a controller from the config gains.
func NewController(cfg Config) *Controller {
	return &Controller{
		kp:       cfg.Kp,
		kd:       cfg.Kd,
		deadZone: cfg.DeadZone,
		maxOmega: cfg.MaxOmega,
	}
}

// Steer computes the rotation command for the given offset. The
// second return is false when the target is inside the dead zone and
// no turn is needed. The derivative term uses the per-frame error
// delta, so gains assume a steady frame rate.
func (c *Controller) Steer(offset float64) (float64, bool) {
	if offset > -c.deadZone && offset < c.deadZone {
		// Inside the dead zone the derivative history still updates so
		// a target sliding across center does not kick on exit.
		c.lastErr = offset
		c.hasLast = true
		return 0, false
	}

	var derivative float64
	if c.hasLast {
		derivative = offset - c.lastErr
	}
	c.lastErr = offset
	c.hasLast = true

	omega := c.kp*offset + c.kd*derivative
	return clamp(omega, -c.maxOmega, c.maxOmega), true
}

// Reset clears the derivative history, for use after the target was
// lost so the next fix does not see a huge error jump.
func (c *Controller) Reset() {
	c.lastErr = 0
	c.hasLast = false
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
