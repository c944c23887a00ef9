// Package fingerstest builds synthetic hands for tests.
package fingerstest

import "ctchen222/Finger-Auth/internal/fingers"

// Hand returns a hand whose digits, thumb to pinky, are extended according to
// the given flags. Missing flags are folded.
func Hand(extended ...bool) fingers.HandLandmarks {
	var h fingers.HandLandmarks
	for i := range h {
		h[i] = fingers.Point{X: 0.5, Y: 0.5}
	}

	up := func(i int) bool { return i < len(extended) && extended[i] }

	h[fingers.ThumbTip].X = 0.4
	if up(0) {
		h[fingers.ThumbTip].X = 0.6
	}

	tips := []fingers.Landmark{fingers.IndexTip, fingers.MiddleTip, fingers.RingTip, fingers.PinkyTip}
	for i, tip := range tips {
		h[tip].Y = 0.7
		if up(i + 1) {
			h[tip].Y = 0.2
		}
	}
	return h
}

// HandWithCount returns a hand with the first n digits extended.
func HandWithCount(n int) fingers.HandLandmarks {
	flags := make([]bool, fingers.MaxFingers)
	for i := 0; i < n && i < len(flags); i++ {
		flags[i] = true
	}
	return Hand(flags...)
}
