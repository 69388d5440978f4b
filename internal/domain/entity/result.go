package entity

import "encoding/json"

// MsgNoFace is the error recorded for frames in which the detector found nobody.
const MsgNoFace = "no face detected"

// Metrics are the affect values derived from one face's blendshapes.
type Metrics struct {
	GazeH    float64 `json:"gaze_h"`
	GazeV    float64 `json:"gaze_v"`
	Smile    float64 `json:"smile"`
	Frown    float64 `json:"frown"`
	BrowDown float64 `json:"brow_down"`
	JawOpen  float64 `json:"jaw_open"`
}

// FrameResult is the outcome for one frame. Exactly one of Metrics or Error is set.
type FrameResult struct {
	Metrics *Metrics
	Error   string
	Time    float64
}

// MetricsResult returns a successful frame result.
func MetricsResult(m Metrics) FrameResult {
	return FrameResult{Metrics: &m}
}

// ErrorResult returns a failed frame result carrying msg.
func ErrorResult(msg string) FrameResult {
	return FrameResult{Error: msg}
}

// OK reports whether the frame produced metrics.
func (r FrameResult) OK() bool {
	return r.Metrics != nil
}

type metricsRecord struct {
	Metrics
	Time float64 `json:"time"`
}

type errorRecord struct {
	Error string  `json:"error"`
	Time  float64 `json:"time"`
}

func (r FrameResult) MarshalJSON() ([]byte, error) {
	if r.Metrics != nil {
		return json.Marshal(metricsRecord{Metrics: *r.Metrics, Time: r.Time})
	}
	return json.Marshal(errorRecord{Error: r.Error, Time: r.Time})
}

// AnalysisRun is the ordered per-frame result sequence of one video.
type AnalysisRun []FrameResult

// Summary condenses an AnalysisRun.
type Summary struct {
	TotalFrames int     `json:"total_frames_processed"`
	DurationSec float64 `json:"duration_analyzed_sec"`
	FaceFrames  int     `json:"face_detected_frames"`
}

// Summarize counts frames with a detected face. samplingRate must be positive.
func (r AnalysisRun) Summarize(samplingRate float64) Summary {
	s := Summary{TotalFrames: len(r)}
	for _, fr := range r {
		if fr.OK() {
			s.FaceFrames++
		}
	}
	if samplingRate > 0 {
		s.DurationSec = float64(len(r)) / samplingRate
	}
	return s
}
