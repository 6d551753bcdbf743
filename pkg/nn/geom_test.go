package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRect(t *testing.T) {
	a := MakeRect(0, 0, 10, 10)
	b := MakeRect(5, 5, 10, 10)

	require.Equal(t, 100, a.Area())
	require.Equal(t, MakeRect(5, 5, 5, 5), a.Intersection(b))
	require.Equal(t, MakeRect(0, 0, 15, 15), a.Union(b))
	require.InDelta(t, 25.0/175.0, a.IOU(b), 1e-6)

	// Disjoint rects
	c := MakeRect(100, 100, 10, 10)
	require.Equal(t, 0, a.Intersection(c).Area())
	require.Equal(t, float32(0), a.IOU(c))

	// Degenerate rects must not divide by zero
	z := MakeRect(0, 0, 0, 0)
	require.Equal(t, float32(0), z.IOU(z))

	require.Equal(t, Point{X: 5, Y: 5}, a.Center())
	a.Offset(3, 4)
	require.Equal(t, MakeRect(3, 4, 10, 10), a)
}

func TestDistance(t *testing.T) {
	require.Equal(t, float32(5), Point{X: 0, Y: 0}.Distance(Point{X: 3, Y: 4}))
	require.Equal(t, float32(500), FrameDiagonal(400, 300))
}

func TestDirectionVector(t *testing.T) {
	// Facing dead ahead has no direction; the vector degenerates to zero
	dx, dy := FacePose{FaceDetected: true}.DirectionVector()
	require.Equal(t, float32(0), dx)
	require.Equal(t, float32(0), dy)

	// Looking right maps to +x, looking up maps to -y (image space)
	dx, dy = FacePose{Yaw: 90, FaceDetected: true}.DirectionVector()
	require.InDelta(t, 1, dx, 1e-6)
	require.InDelta(t, 0, dy, 1e-6)

	dx, dy = FacePose{Yaw: 30, Pitch: 30, FaceDetected: true}.DirectionVector()
	require.InDelta(t, 0.7071, float64(dx), 1e-3)
	require.InDelta(t, -0.7071, float64(dy), 1e-3)
}
