// Package fingers derives a count of extended fingers from hand landmarks.
package fingers

// LandmarkCount is the number of keypoints in one detected hand.
const LandmarkCount = 21

// Landmark indexes the fixed anatomical roles of the 21-point hand model.
type Landmark int

const (
	Wrist Landmark = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// Point is a keypoint in coordinates normalized to the image frame, where
// (0,0) is the top-left corner and Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandLandmarks holds the keypoints of a single hand indexed by Landmark.
type HandLandmarks [LandmarkCount]Point

// At returns the keypoint for the given role.
func (h HandLandmarks) At(l Landmark) Point {
	return h[l]
}

// Translate returns a copy of the hand shifted by (dx, dy).
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h {
		h[i].X += dx
		h[i].Y += dy
	}
	return h
}
