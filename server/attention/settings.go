package attention

import "fmt"

// Settings controls a single attention analysis session.
// A Settings object is validated once, when the session is created. Changing
// thresholds mid-session is not supported, because it causes label flicker.
type Settings struct {
	// Minimum IoU between a track and a detection for the pair to be considered a match
	IOUThreshold float32 `json:"iouThreshold"`
	// Number of consecutive unmatched frames after which a track is deleted
	MaxDisappeared int `json:"maxDisappeared"`
	// Capacity of the rolling attention confidence window, per track
	WindowSize int `json:"windowSize"`
	// A head is "near center" if |yaw| <= NearYawThreshold and |pitch| <= NearPitchThreshold (degrees)
	NearYawThreshold   float32 `json:"nearYawThreshold"`
	NearPitchThreshold float32 `json:"nearPitchThreshold"`
	// Beyond this angle (yaw or pitch, degrees) a head is definitely turned away,
	// regardless of the smoothed confidence
	FarThreshold float32 `json:"farThreshold"`
	// Minimum smoothed confidence required to classify a person as attentive
	MinConfidence float32 `json:"minConfidence"`
	// Number of consecutive frames for which we will reuse the last known pose of a
	// person whose face is not currently detected. Zero means no limit.
	MaxFallbackAge int `json:"maxFallbackAge"`
	// Capacity of the per-track position history ring buffer (rounded up to a power of 2)
	PositionHistorySize int `json:"positionHistorySize"`
}

func DefaultSettings() Settings {
	return Settings{
		IOUThreshold:        0.3,
		MaxDisappeared:      15,
		WindowSize:          10,
		NearYawThreshold:    25,
		NearPitchThreshold:  20,
		FarThreshold:        45,
		MinConfidence:       0.7,
		MaxFallbackAge:      0,
		PositionHistorySize: 32,
	}
}

// Validate returns a descriptive error if any setting is out of range.
// We validate up front so that the per-frame code never needs to clamp.
func (s *Settings) Validate() error {
	if s.IOUThreshold < 0 || s.IOUThreshold > 1 {
		return fmt.Errorf("iouThreshold %.3f is out of range [0,1]", s.IOUThreshold)
	}
	if s.MaxDisappeared < 0 {
		return fmt.Errorf("maxDisappeared %v may not be negative", s.MaxDisappeared)
	}
	if s.WindowSize < 1 {
		return fmt.Errorf("windowSize %v must be at least 1", s.WindowSize)
	}
	if s.NearYawThreshold <= 0 {
		return fmt.Errorf("nearYawThreshold %.1f must be positive", s.NearYawThreshold)
	}
	if s.NearPitchThreshold <= 0 {
		return fmt.Errorf("nearPitchThreshold %.1f must be positive", s.NearPitchThreshold)
	}
	if s.FarThreshold <= 0 {
		return fmt.Errorf("farThreshold %.1f must be positive", s.FarThreshold)
	}
	if s.NearYawThreshold > s.FarThreshold {
		return fmt.Errorf("nearYawThreshold %.1f exceeds farThreshold %.1f", s.NearYawThreshold, s.FarThreshold)
	}
	if s.NearPitchThreshold > s.FarThreshold {
		return fmt.Errorf("nearPitchThreshold %.1f exceeds farThreshold %.1f", s.NearPitchThreshold, s.FarThreshold)
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("minConfidence %.3f is out of range [0,1]", s.MinConfidence)
	}
	if s.MaxFallbackAge < 0 {
		return fmt.Errorf("maxFallbackAge %v may not be negative", s.MaxFallbackAge)
	}
	if s.PositionHistorySize < 1 {
		return fmt.Errorf("positionHistorySize %v must be at least 1", s.PositionHistorySize)
	}
	return nil
}
