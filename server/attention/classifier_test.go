package attention

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The far-threshold check is a hard cutoff. A head turned 60 degrees away is
// NotAttentive, no matter how good the smoothed confidence looks.
func TestHardCutoffOverridesSmoothing(t *testing.T) {
	settings := testSettings()

	require.Equal(t, LabelNotAttentive, classify(&settings, 60, 0, true, 1.0))
	require.Equal(t, LabelNotAttentive, classify(&settings, -60, 0, true, 1.0))
	require.Equal(t, LabelNotAttentive, classify(&settings, 0, 50, true, 1.0))
	require.Equal(t, LabelNotAttentive, classify(&settings, 0, 0, false, 1.0))
}

// Boundary values are inclusive on the attentive side
func TestThreeTierBoundaries(t *testing.T) {
	settings := testSettings()

	// Exactly on the near thresholds and minimum confidence: attentive
	require.Equal(t, LabelAttentive, classify(&settings, 25, 20, true, 0.70))
	require.Equal(t, LabelAttentive, classify(&settings, -25, -20, true, 0.70))

	// A hair over any of the three: not attentive anymore, but face is
	// visible and within the far band, so distracted
	require.Equal(t, LabelDistracted, classify(&settings, 25.01, 20, true, 0.70))
	require.Equal(t, LabelDistracted, classify(&settings, 25, 20.01, true, 0.70))
	require.Equal(t, LabelDistracted, classify(&settings, 25, 20, true, 0.6999))

	// Exactly on the far threshold is still inside the moderate band
	require.Equal(t, LabelDistracted, classify(&settings, 45, 0, true, 0.2))
	require.Equal(t, LabelNotAttentive, classify(&settings, 45.01, 0, true, 0.2))
}

func TestLabelJSON(t *testing.T) {
	for _, label := range []Label{LabelAttentive, LabelDistracted, LabelNotAttentive} {
		b, err := label.MarshalJSON()
		require.NoError(t, err)
		var back Label
		require.NoError(t, back.UnmarshalJSON(b))
		require.Equal(t, label, back)
	}
	var bad Label
	require.Error(t, bad.UnmarshalJSON([]byte(`"sleeping"`)))
}
