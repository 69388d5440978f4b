package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes for FramesAnalyzedTotal.
const (
	OutcomeMetrics = "metrics"
	OutcomeNoFace  = "no_face"
	OutcomeError   = "error"
)

var (
	FramesAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affect_frames_analyzed_total",
		Help: "Total number of frames analyzed, by outcome",
	}, []string{"outcome"})

	FrameAnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "affect_frame_analysis_duration_seconds",
		Help:    "Time spent decoding and running face detection on one frame",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affect_frames_extracted_total",
		Help: "Total number of frames sampled from videos",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "affect_stage_duration_seconds",
		Help:    "Duration of each stage of the analysis pipeline",
		Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affect_runs_total",
		Help: "Total number of video analysis runs, by status",
	}, []string{"status"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affect_jobs_processed_total",
		Help: "Total number of queued jobs processed, by status",
	}, []string{"status"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "affect_active_workers",
		Help: "Number of workers currently processing a job",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affect_job_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})

	ModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "affect_model_loaded",
		Help: "1 once the face landmarker model is loaded",
	})
)
