package watch

// UnknownCounter counts consecutive processed frames that contained an unknown face.
// A single stray misclassification never alerts; a sustained run does.
type UnknownCounter struct {
	threshold int
	run       int
}

// NewUnknownCounter alerts once the run reaches threshold frames.
func NewUnknownCounter(threshold int) *UnknownCounter {
	if threshold < 1 {
		threshold = 1
	}
	return &UnknownCounter{threshold: threshold}
}

// Observe records one processed frame. It returns the current run length and
// whether the alert condition holds for this frame.
func (c *UnknownCounter) Observe(hasUnknown bool) (int, bool) {
	if !hasUnknown {
		c.run = 0
		return 0, false
	}
	c.run++
	return c.run, c.run >= c.threshold
}

// Run is the current number of consecutive frames with an unknown face.
func (c *UnknownCounter) Run() int {
	return c.run
}

// Threshold is the run length at which alerts start.
func (c *UnknownCounter) Threshold() int {
	return c.threshold
}
