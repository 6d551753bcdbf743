package attention

import (
	"math"
	"sort"
	"time"

	"github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/gaze/pkg/idgen"
	"github.com/cyclopcam/gaze/pkg/nn"
)

// A time and position where we saw a person
type timeAndPosition struct {
	time time.Time
	box  nn.Rect
}

// Internal state of one tracked person
type track struct {
	id             int64   // Assigned once, never reused within a session
	box            nn.Rect // Last known position
	disappeared    int     // Consecutive frames with no matching detection
	totalSightings int
	firstSeen      time.Time
	history        ringbuffer.RingP[timeAndPosition]

	// Index of the detection that matched this track in the current frame, or -1.
	// Valid only between updateTracks and the end of processFrame.
	matchedDetection int
}

func (t *track) mostRecent() timeAndPosition {
	return t.history.Peek(t.history.Len() - 1)
}

func (t *track) distanceFromOrigin() float32 {
	if t.history.Len() == 0 {
		return 0
	}
	return t.history.Peek(0).box.Center().Distance(t.mostRecent().box.Center())
}

// tracker assigns stable integer identities to per-frame person detections.
// Matching is greedy: we score all eligible (track, detection) pairs, sort by
// score, and assign best pairs first. This is deliberately not an optimal
// (min-cost) assignment. Greedy is cheaper, and for the small N we deal with,
// the difference only shows up as different tie-breaking.
type tracker struct {
	settings *Settings
	tracks   []*track // in creation order
	ids      idgen.Int64
}

// A candidate (track, detection) pairing
type matchCandidate struct {
	detection int
	track     int
	score     float32
}

func newTracker(settings *Settings) *tracker {
	return &tracker{
		settings: settings,
	}
}

// update matches the current frame's detections against the tracked people.
//
// Returns one track id per detection (a freshly minted id if the detection
// started a new track), and the ids of tracks that were deleted during this
// call. The caller must purge any per-track state (eg pose history) for the
// deleted ids; that is what bounds memory to the live track count.
//
// Zero detections and zero existing tracks are valid steady states.
func (tr *tracker) update(detections []nn.Detection, frameWidth, frameHeight int, framePTS time.Time) (detToTrack []int64, removed []int64) {
	historySize := nextPowerOf2(tr.settings.PositionHistorySize)
	diagonal := nn.FrameDiagonal(frameWidth, frameHeight)
	if diagonal <= 0 {
		// A degenerate frame size would turn every score into NaN.
		// With an infinite diagonal the distance term is a constant,
		// so matching degrades to pure IoU.
		diagonal = math32.Inf(1)
	}

	for _, t := range tr.tracks {
		t.matchedDetection = -1
	}

	// Spatial index over the current tracks, so that we only score pairs that
	// can plausibly overlap. Eligibility requires IoU >= threshold, and any
	// nonzero IoU requires overlap, so searching with the detection's own
	// extents finds every eligible track.
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(tr.tracks))
	for _, t := range tr.tracks {
		fb.Add(int32(t.box.X), int32(t.box.Y), int32(t.box.X2()), int32(t.box.Y2()))
	}
	fb.Finish()

	// Score all eligible (track, detection) pairs.
	// score = 0.8 * IoU + 0.2 * (1 - normalized centroid distance)
	// The centroid distance is normalized by the frame diagonal, which bounds it to [0,1].
	candidates := []matchCandidate{}
	nearby := []int{}
	for i := range detections {
		box := &detections[i].Box
		nearby = fb.SearchFast(int32(box.X), int32(box.Y), int32(box.X2()), int32(box.Y2()), nearby)
		// SearchFast returns indices in index-internal order. Sort them so that
		// equal scores break ties on track creation order.
		sort.Ints(nearby)
		for _, j := range nearby {
			iou := box.IOU(tr.tracks[j].box)
			if iou <= 0 || iou < tr.settings.IOUThreshold {
				continue
			}
			distance := box.Center().Distance(tr.tracks[j].box.Center())
			score := 0.8*iou + 0.2*(1-distance/diagonal)
			candidates = append(candidates, matchCandidate{detection: i, track: j, score: score})
		}
	}

	// Stable sort, descending by score. Ties resolve to the earlier
	// (detection, track) pair, which keeps matching deterministic.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	detToTrack = make([]int64, len(detections))
	for i := range detToTrack {
		detToTrack[i] = -1
	}
	trackMatched := make([]bool, len(tr.tracks))

	for _, c := range candidates {
		if detToTrack[c.detection] != -1 || trackMatched[c.track] {
			continue
		}
		t := tr.tracks[c.track]
		t.box = detections[c.detection].Box
		t.disappeared = 0
		t.totalSightings++
		t.matchedDetection = c.detection
		t.history.Add(timeAndPosition{time: framePTS, box: t.box})
		trackMatched[c.track] = true
		detToTrack[c.detection] = t.id
	}

	// Unmatched detections become new tracks
	for i := range detections {
		if detToTrack[i] != -1 {
			continue
		}
		t := &track{
			id:               tr.ids.Next(),
			box:              detections[i].Box,
			totalSightings:   1,
			firstSeen:        framePTS,
			history:          ringbuffer.NewRingP[timeAndPosition](historySize),
			matchedDetection: i,
		}
		t.history.Add(timeAndPosition{time: framePTS, box: t.box})
		tr.tracks = append(tr.tracks, t)
		detToTrack[i] = t.id
	}

	// Unmatched tracks age, and die once they exceed MaxDisappeared.
	// Removal is irreversible: if the person comes back, they get a new id.
	remaining := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.matchedDetection != -1 {
			// Matched, or created this frame
			remaining = append(remaining, t)
			continue
		}
		t.disappeared++
		if t.disappeared > tr.settings.MaxDisappeared {
			removed = append(removed, t.id)
		} else {
			remaining = append(remaining, t)
		}
	}
	tr.tracks = remaining

	return detToTrack, removed
}

func (tr *tracker) liveTrackCount() int {
	return len(tr.tracks)
}

func (tr *tracker) reset() {
	tr.tracks = nil
	tr.ids.Reset()
}

func nextPowerOf2(n int) int {
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
