package tracking

// Target is one detection reduced to what steering needs: where it
// sits horizontally and how much of the frame it fills.
type Target struct {
	// OffsetX is the horizontal center in normalized frame
	// coordinates, -1 at the left edge, +1 at the right.
	OffsetX float64

	// Area is the bounding-box area as a fraction of the frame (0..1).
	// It stands in for distance: bigger means closer.
	Area float64
}

// Smoother applies an exponential moving average to successive target
// observations so detector jitter does not shake the base.
type Smoother struct {
	alpha   float64
	current Target
	hasLast bool
}

// NewSmoother builds a smoother with the given EMA weight for new
// observations. Weight 1 passes observations through unchanged.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Observe folds a new observation in and returns the smoothed target.
func (s *Smoother) Observe(t Target) Target {
	if !s.hasLast {
		s.current = t
		s.hasLast = true
		return s.current
	}
	s.current.OffsetX = s.alpha*t.OffsetX + (1-s.alpha)*s.current.OffsetX
	s.current.Area = s.alpha*t.Area + (1-s.alpha)*s.current.Area
	return s.current
}

// Reset forgets the history so the next observation is taken as-is.
func (s *Smoother) Reset() {
	s.hasLast = false
}
