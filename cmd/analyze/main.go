package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oenmin/affect-analyzer/internal/app"
	"github.com/oenmin/affect-analyzer/internal/infra/config"
	"github.com/oenmin/affect-analyzer/internal/infra/tracing"
	"github.com/oenmin/affect-analyzer/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const Version = "0.1.0"

type options struct {
	Input      string
	Output     string
	FrameRate  float64
	ModelPath  string
	MaxSide    int
	LogLevel   string
	NoProgress bool
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := options{
		Output:    cfg.OutputPath,
		FrameRate: cfg.FrameRate,
		ModelPath: cfg.LandmarkerModelPath,
		MaxSide:   cfg.MaxImageSide,
		LogLevel:  cfg.LogLevel,
	}

	cmd := &cobra.Command{
		Use:           "analyze [video]",
		Short:         "Derive per-frame affect metrics from a video",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Input = args[0]
			}
			if opts.Input == "" {
				return errors.New("no input video given (use --input or a positional argument)")
			}
			cfg.OutputPath = opts.Output
			cfg.FrameRate = opts.FrameRate
			cfg.LandmarkerModelPath = opts.ModelPath
			cfg.MaxImageSide = opts.MaxSide
			cfg.LogLevel = opts.LogLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Path to the input video")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", opts.Output, "Where to write the JSON results")
	cmd.Flags().Float64VarP(&opts.FrameRate, "fps", "f", opts.FrameRate, "Frames sampled per second of video")
	cmd.Flags().StringVarP(&opts.ModelPath, "model", "m", opts.ModelPath, "Face landmarker model file")
	cmd.Flags().IntVar(&opts.MaxSide, "max-side", opts.MaxSide, "Downscale frames so no side exceeds this (0 keeps full size)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.NoProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	shutdownTracing := tracing.Setup(ctx, cfg.TracingEnabled, cfg.JaegerEndpoint, "affect-analyzer-cli", log)
	defer shutdownTracing(context.Background())

	if _, err := os.Stat(opts.Input); err != nil {
		log.Error("input video not found", zap.String("input", opts.Input), zap.Error(err))
		return fmt.Errorf("input video: %w", err)
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	framesDir, err := os.MkdirTemp(cfg.TempDir, "frames-")
	if err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	defer os.RemoveAll(framesDir)

	pipeline := app.NewPipeline(cfg, log)
	defer pipeline.Close(log)
	if err := pipeline.LoadModel(ctx, log); err != nil {
		log.Error("model load failed", zap.Error(err))
		return err
	}

	var progress func(done, total int)
	if !opts.NoProgress {
		var bar *progressbar.ProgressBar
		progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Analyzing frames"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}
	}

	analysis, err := pipeline.Video.Execute(ctx, opts.Input, framesDir, progress)
	if err != nil {
		log.Error("analysis failed", zap.String("input", opts.Input), zap.Error(err))
		return err
	}

	if err := writeResults(cfg.OutputPath, analysis.Run); err != nil {
		log.Error("failed to write results", zap.String("output", cfg.OutputPath), zap.Error(err))
		return err
	}

	log.Info("analysis written",
		zap.String("output", cfg.OutputPath),
		zap.Int("frames", analysis.Summary.TotalFrames),
		zap.Int("face_frames", analysis.Summary.FaceFrames),
		zap.Float64("duration_analyzed_sec", analysis.Summary.DurationSec),
	)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
