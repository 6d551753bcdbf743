package nn

import (
	"encoding/json"
	"os"
	"unsafe"

	"github.com/chewxy/math32"
)

// Package nn is the interface layer between us and the neural networks that
// feed the attention pipeline. The networks themselves (person detection,
// facial landmarks / head pose) are black boxes behind the two interfaces
// at the bottom of this file.

const DefaultProbabilityThreshold = 0.4

// A person found by the object detector in a single frame.
// Detections carry no identity; identity is assigned by the tracker.
type Detection struct {
	Box        Rect    `json:"box"`
	Confidence float32 `json:"confidence"`
}

// FacePose is the raw output of the head pose estimator for one detection.
// Angles are in degrees, relative to facing the reference point (eg the camera).
// If FaceDetected is false, then Yaw and Pitch are meaningless.
type FacePose struct {
	Yaw          float32 `json:"yaw"`
	Pitch        float32 `json:"pitch"`
	FaceDetected bool    `json:"faceDetected"`
}

// DirectionVector returns a unit vector (dx, dy) in image space, pointing in
// the direction that the head is facing. dy is negated because image Y grows
// downward. Used by the renderer to draw direction arrows.
func (p FacePose) DirectionVector() (float32, float32) {
	dx := math32.Sin(p.Yaw * math32.Pi / 180)
	dy := -math32.Sin(p.Pitch * math32.Pi / 180)
	magnitude := math32.Sqrt(dx*dx + dy*dy)
	if magnitude > 0 {
		dx /= magnitude
		dy /= magnitude
	}
	return dx, dy
}

// NN detection parameters
type DetectionParams struct {
	ProbabilityThreshold float32 // Value between 0 and 1. Lower values will find more people. Zero value will use the default.
}

func NewDetectionParams() *DetectionParams {
	return &DetectionParams{
		ProbabilityThreshold: DefaultProbabilityThreshold,
	}
}

// ImageCrop is a crop of an image.
// In C we would represent this as a pointer and a stride, but since that's not memory safe,
// we must resort to this kind of thing.
// To create an ImageCrop, start with WholeImage(), and then use Crop() to get a sub-crop.
type ImageCrop struct {
	NChan       int    // Number of channels (eg 3 for RGB)
	Pixels      []byte // The whole image
	ImageWidth  int    // The width of the original image, held in Pixels
	ImageHeight int    // The height of the original image, held in Pixels
	CropX       int    // Origin of crop X
	CropY       int    // Origin of crop Y
	CropWidth   int    // The width of this crop
	CropHeight  int    // The height of this crop
}

// Return a pointer to the start of the crop
func (c ImageCrop) Pointer() unsafe.Pointer {
	ptr := unsafe.Pointer(&c.Pixels[0])
	ptr = unsafe.Add(ptr, (c.CropY*c.ImageWidth+c.CropX)*c.NChan)
	return ptr
}

func (c ImageCrop) Stride() int {
	return c.ImageWidth * c.NChan
}

// Return a crop of the crop (new crop is relative to existing).
// If any parameter is out of bounds, we panic
func (c ImageCrop) Crop(x1, y1, x2, y2 int) ImageCrop {
	nc := ImageCrop{
		NChan:       c.NChan,
		Pixels:      c.Pixels,
		ImageWidth:  c.ImageWidth,
		ImageHeight: c.ImageHeight,
		CropX:       c.CropX + x1,
		CropY:       c.CropY + y1,
		CropWidth:   x2 - x1,
		CropHeight:  y2 - y1,
	}
	if nc.CropX < 0 || nc.CropY < 0 || nc.CropWidth < 0 || nc.CropHeight < 0 || nc.CropX+nc.CropWidth > c.ImageWidth || nc.CropY+nc.CropHeight > c.ImageHeight {
		panic("Crop out of bounds")
	}
	return nc
}

// Return a 'crop' of the entire image
func WholeImage(nchan int, pixels []byte, width, height int) ImageCrop {
	return ImageCrop{
		NChan:       nchan,
		Pixels:      pixels,
		ImageWidth:  width,
		ImageHeight: height,
		CropX:       0,
		CropY:       0,
		CropWidth:   width,
		CropHeight:  height,
	}
}

// PersonDetector is given an image, and returns zero or more detected people
type PersonDetector interface {
	// Close closes the detector (you MUST call this when finished, because it's a C++ object underneath)
	Close()

	// DetectPeople returns the people detected in the image.
	// nchan is expected to be 3, and image is a 24-bit RGB image.
	// You can create a default DetectionParams with NewDetectionParams()
	DetectPeople(img ImageCrop, params *DetectionParams) ([]Detection, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the detector has been created.
	Config() *ModelConfig
}

// FacePoseEstimator extracts a head pose for each person detection.
// The returned slice is parallel to 'people': poses[i] belongs to people[i].
// A person whose face could not be found gets FaceDetected=false.
// This index correspondence is a contract; the pipeline relies on it.
type FacePoseEstimator interface {
	Close()
	EstimatePoses(img ImageCrop, people []Detection) ([]FacePose, error)
}

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture string `json:"architecture"` // eg "yolov8"
	Width        int    `json:"width"`        // eg 320
	Height       int    `json:"height"`       // eg 256
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}
