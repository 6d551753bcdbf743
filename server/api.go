package server

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"time"

	"github.com/cyclopcam/gaze/pkg/nn"
	"github.com/cyclopcam/gaze/server/attention"
	"github.com/cyclopcam/gaze/server/render"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

const maxFrameBodyBytes = 1024 * 1024

func (s *Server) setupHttpRoutes() *httprouter.Router {
	router := httprouter.New()

	open := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// Mutating endpoints get a per-endpoint rate limiter, keyed by client IP
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	open("GET", "/api/ping", s.httpPing)
	open("GET", "/api/health", s.httpHealth)
	open("GET", "/api/config", s.httpConfig)
	open("GET", "/api/cameras", s.httpCameras)
	open("GET", "/api/camera/:cameraID/latest", s.httpCameraLatest)
	open("GET", "/api/camera/:cameraID/debug.png", s.httpCameraDebugImage)
	open("POST", "/api/camera/:cameraID/frame", s.httpCameraFrame)
	ratelimited("POST", "/api/camera/:cameraID/reset", s.httpCameraReset, 10, time.Minute)
	open("GET", "/api/camera/:cameraID/ws", s.httpCameraWS)

	ratelimited("POST", "/api/recording/start/:cameraID", s.httpRecordingStart, 10, time.Minute)
	ratelimited("POST", "/api/recording/stop/:recordingID", s.httpRecordingStop, 10, time.Minute)
	open("GET", "/api/recording/list", s.httpRecordingList)
	open("GET", "/api/recording/:recordingID", s.httpRecordingGet)
	open("GET", "/api/recording/:recordingID/samples", s.httpRecordingSamples)

	return router
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendOK(w)
}

type healthJSON struct {
	Cameras            []int64 `json:"cameras"`
	AverageFrameTimeMS float64 `json:"averageFrameTimeMS"`
}

func (s *Server) httpHealth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, &healthJSON{
		Cameras:            s.Monitor.CameraIDs(),
		AverageFrameTimeMS: float64(s.Monitor.AverageFrameTime().Microseconds()) / 1000,
	})
}

func (s *Server) httpConfig(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings := s.Config.AttentionSettings()
	www.SendJSON(w, &settings)
}

func (s *Server) httpCameras(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.Config.Cameras)
}

// Latest analysis for one camera. 404 until the camera's first frame arrives.
func (s *Server) httpCameraLatest(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cameraID := www.ParseID(params.ByName("cameraID"))
	state := s.Monitor.LatestState(cameraID)
	if state == nil {
		www.PanicNotFound()
	}
	www.SendJSON(w, state)
}

// One frame's worth of upstream NN output. The detector process posts one of
// these per analyzed frame. This is the ingestion path for detectors that run
// outside our process; in-process embedders call Monitor.InjectFrame directly.
type injectFrameJSON struct {
	FramePTS    time.Time      `json:"framePTS"`
	FrameWidth  int            `json:"frameWidth"`
	FrameHeight int            `json:"frameHeight"`
	Detections  []nn.Detection `json:"detections"`
	Poses       []nn.FacePose  `json:"poses"` // poses[i] belongs to detections[i]
}

func (s *Server) httpCameraFrame(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cameraID := www.ParseID(params.ByName("cameraID"))
	frame := injectFrameJSON{}
	www.ReadJSON(w, r, &frame, maxFrameBodyBytes)
	if frame.FramePTS.IsZero() {
		frame.FramePTS = time.Now()
	}
	s.Monitor.InjectFrame(cameraID, frame.FramePTS, frame.FrameWidth, frame.FrameHeight, frame.Detections, frame.Poses)
	www.SendOK(w)
}

// Latest analysis drawn onto a blank canvas, for eyeballing the pipeline when
// the original video frame is not available to us
func (s *Server) httpCameraDebugImage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cameraID := www.ParseID(params.ByName("cameraID"))
	state := s.Monitor.LatestState(cameraID)
	if state == nil {
		www.PanicNotFound()
	}
	width, height := state.FrameWidth, state.FrameHeight
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.RGBA{R: 40, G: 40, B: 40, A: 255}}, image.Point{}, draw.Src)
	annotated := render.DrawAnalysis(canvas, &attention.FrameAnalysis{
		FramePTS: state.FramePTS,
		Results:  state.Results,
		Counts:   state.Counts,
	})
	w.Header().Set("Content-Type", "image/png")
	www.Check(png.Encode(w, annotated))
}

func (s *Server) httpCameraReset(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cameraID := www.ParseID(params.ByName("cameraID"))
	if !s.Monitor.ResetCamera(cameraID) {
		www.PanicNotFound()
	}
	s.Log.Infof("Camera %v reset via API", cameraID)
	www.SendOK(w)
}

type recordingStartJSON struct {
	RecordingID int64 `json:"recordingID"`
}

func (s *Server) httpRecordingStart(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cameraID := www.ParseID(params.ByName("cameraID"))
	name := www.QueryValue(r, "name")

	s.recordingsLock.Lock()
	_, busy := s.recordings[cameraID]
	s.recordingsLock.Unlock()
	if busy {
		www.PanicBadRequestf("Camera %v is already recording", cameraID)
	}

	recordingID, err := s.Stats.StartRecording(cameraID, name)
	www.Check(err)

	s.recordingsLock.Lock()
	s.recordings[cameraID] = recordingID
	s.recordingsLock.Unlock()

	www.SendJSON(w, &recordingStartJSON{RecordingID: recordingID})
}

func (s *Server) httpRecordingStop(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	recordingID := www.ParseID(params.ByName("recordingID"))

	s.recordingsLock.Lock()
	for camera, active := range s.recordings {
		if active == recordingID {
			delete(s.recordings, camera)
			break
		}
	}
	s.recordingsLock.Unlock()

	rec, err := s.Stats.StopRecording(recordingID)
	www.Check(err)
	www.SendJSON(w, rec)
}

func (s *Server) httpRecordingList(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	camera := www.QueryInt64(r, "camera") // 0 means all cameras
	recs, err := s.Stats.ListRecordings(camera)
	www.Check(err)
	www.SendJSON(w, recs)
}

func (s *Server) httpRecordingGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	recordingID := www.ParseID(params.ByName("recordingID"))
	rec, err := s.Stats.GetRecording(recordingID)
	www.Check(err)
	www.SendJSON(w, rec)
}

func (s *Server) httpRecordingSamples(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	recordingID := www.ParseID(params.ByName("recordingID"))
	samples, err := s.Stats.Samples(recordingID)
	www.Check(err)
	www.SendJSON(w, samples)
}
