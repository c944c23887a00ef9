package fingers

// digit pairs a fingertip with the joint it is compared against.
type digit struct {
	tip Landmark
	ref Landmark
}

var (
	thumb = digit{tip: ThumbTip, ref: ThumbIP}

	// The four long fingers are compared tip against PIP joint.
	longFingers = [4]digit{
		{tip: IndexTip, ref: IndexPIP},
		{tip: MiddleTip, ref: MiddlePIP},
		{tip: RingTip, ref: RingPIP},
		{tip: PinkyTip, ref: PinkyPIP},
	}
)

// MaxFingers is the largest value Count can return.
const MaxFingers = 5

// Count returns the number of extended fingers, 0 to 5.
//
// The thumb counts when its tip lies strictly right of its IP joint; the other
// fingers count when the tip lies strictly above the PIP joint. Equal
// coordinates are treated as folded.
func Count(hand HandLandmarks) int {
	n := 0
	for _, up := range Extended(hand) {
		if up {
			n++
		}
	}
	return n
}

// Extended reports, per digit from thumb to pinky, whether it is extended.
func Extended(hand HandLandmarks) [MaxFingers]bool {
	var out [MaxFingers]bool
	out[0] = hand.At(thumb.tip).X > hand.At(thumb.ref).X
	for i, d := range longFingers {
		out[i+1] = hand.At(d.tip).Y < hand.At(d.ref).Y
	}
	return out
}
