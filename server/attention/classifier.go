package attention

import (
	"encoding/json"
	"fmt"

	"github.com/chewxy/math32"
)

// Label is the per-person attention verdict for one frame
type Label int

const (
	// No usable head pose, or the head is turned far away from the reference point
	LabelNotAttentive Label = iota
	// Face visible, but the head is in the moderate band, or confidence is too low
	LabelDistracted
	// Head near center with sustained high confidence
	LabelAttentive
)

func (l Label) String() string {
	switch l {
	case LabelNotAttentive:
		return "notAttentive"
	case LabelDistracted:
		return "distracted"
	case LabelAttentive:
		return "attentive"
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Label) UnmarshalJSON(b []byte) error {
	s := ""
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "notAttentive":
		*l = LabelNotAttentive
	case "distracted":
		*l = LabelDistracted
	case "attentive":
		*l = LabelAttentive
	default:
		return fmt.Errorf("unknown attention label '%v'", s)
	}
	return nil
}

// classify maps an effective head pose and a smoothed confidence to a label.
// The tiers are evaluated in order, first match wins:
//
//  1. NotAttentive: no pose, or either angle beyond FarThreshold. This is a
//     hard cutoff. A window full of high confidence samples must never label a
//     clearly turned-away head as attentive, so this check runs before any
//     confidence is consulted.
//  2. Attentive: both angles within the near thresholds (inclusive), and the
//     smoothed confidence at least MinConfidence (inclusive).
//  3. Distracted: everything else.
func classify(settings *Settings, yaw, pitch float32, havePose bool, smoothed float32) Label {
	if !havePose || math32.Abs(yaw) > settings.FarThreshold || math32.Abs(pitch) > settings.FarThreshold {
		return LabelNotAttentive
	}
	if math32.Abs(yaw) <= settings.NearYawThreshold &&
		math32.Abs(pitch) <= settings.NearPitchThreshold &&
		smoothed >= settings.MinConfidence {
		return LabelAttentive
	}
	return LabelDistracted
}
