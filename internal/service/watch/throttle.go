package watch

import "math"

// frameCounterWrap bounds the throttle counter so it never overflows on long runs.
const frameCounterWrap = 4095

// ProcessEvery returns how many captured frames make up one processed frame.
// A target of 0, or one at or above the camera rate, processes every frame.
func ProcessEvery(cameraFPS float64, targetFPS int) int {
	if targetFPS <= 0 || float64(targetFPS) >= cameraFPS {
		return 1
	}
	return int(math.Ceil(cameraFPS / float64(targetFPS)))
}

// Throttle decides which captured frames go through recognition.
type Throttle struct {
	every   int
	counter int
}

// NewThrottle processes one frame out of every n.
func NewThrottle(every int) *Throttle {
	if every < 1 {
		every = 1
	}
	return &Throttle{every: every, counter: 1}
}

// Next advances the frame counter and reports whether the new frame should be processed.
func (t *Throttle) Next() bool {
	if t.counter > frameCounterWrap {
		t.counter = 1
	} else {
		t.counter++
	}
	return t.counter%t.every == 0
}

// Every is the configured stride.
func (t *Throttle) Every() int {
	return t.every
}
