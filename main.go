package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nvr-ai/go-motion/config"
	"github.com/nvr-ai/go-motion/controller"
	"github.com/nvr-ai/go-motion/display"
	"github.com/nvr-ai/go-motion/display/window"
	"github.com/nvr-ai/go-motion/images"
	"github.com/nvr-ai/go-motion/profiler"
	"github.com/nvr-ai/go-motion/source"
	"github.com/nvr-ai/go-motion/source/capture"
)

const (
	// DefaultOutputFormat is used for preview frames written with -output-dir.
	DefaultOutputFormat = images.FormatJPEG
	// DemoFrames is the length of the generated -demo scene.
	DemoFrames = 300
	// statePoll is how often the headless CLI checks for run completion.
	statePoll = 200 * time.Millisecond
)

func main() {
	var (
		configPath string
		videoPath  string
		framesDir  string
		framesFPS  float64
		deviceID   int
		demo       bool
		demoSize   string
		outputDir  string
		outputFmt  string
		writeMasks bool
		showWindow bool
		profile    bool
		watch      bool
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.StringVar(&videoPath, "video", "", "Path to video file (.mp4, .avi, .mov)")
	flag.StringVar(&framesDir, "frames", "", "Directory of numbered frame images (.jpg, .png, .bmp, .webp)")
	flag.Float64Var(&framesFPS, "frames-fps", 0, "Native frame rate of -frames, 0 if unknown")
	flag.IntVar(&deviceID, "device", -1, "Video capture device ID")
	flag.BoolVar(&demo, "demo", false, "Run on a generated scene")
	flag.StringVar(&demoSize, "demo-size", "640x480", "Resolution of the -demo scene")
	flag.StringVar(&outputDir, "output-dir", "", "Write rendered frames to this directory")
	flag.StringVar(&outputFmt, "output-format", string(DefaultOutputFormat), "Preview format: jpeg, png or webp")
	flag.BoolVar(&writeMasks, "masks", false, "Also write foreground masks with -output-dir")
	flag.BoolVar(&showWindow, "show-window", false, "Show visualization windows")
	flag.BoolVar(&profile, "profile", false, "Log runtime and stage timings periodically")
	flag.BoolVar(&watch, "watch", false, "Reload -config when the file changes")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Error loading config %s: %v", configPath, err)
		}
		cfg = *loaded
	}
	if watch && configPath == "" {
		log.Fatal("-watch requires -config")
	}

	src, err := openSource(videoPath, framesDir, framesFPS, deviceID, demo, demoSize)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	printBanner(cfg, src)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var prof *profiler.RuntimeProfiler
	if profile {
		prof = profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
			ReportInterval: 5 * time.Second,
			Logger:         logger,
		})
		prof.Start()
		defer prof.Stop()
	}

	var (
		sinks   []controller.Display
		preview *display.Directory
		mailbox *display.Mailbox
	)
	if outputDir != "" {
		preview, err = display.NewDirectory(outputDir, display.DirectoryOptions{
			Format: images.ImageFormat(outputFmt),
			Masks:  writeMasks,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("Error creating output directory: %v", err)
		}
		sinks = append(sinks, preview)
	}
	if showWindow {
		mailbox = display.NewMailbox()
		sinks = append(sinks, mailbox)
	}
	sinks = append(sinks, resolutionReporter())

	ctl, err := controller.New(cfg, src, fanOut(sinks), controller.WithLogger(logger), controller.WithProfiler(prof))
	if err != nil {
		log.Fatalf("Error creating controller: %v", err)
	}

	if watch {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config, err error) {
				if err != nil {
					logger.Warn("config reload rejected", "error", err)
					return
				}
				if err := applyConfig(ctx, ctl, *next); err != nil {
					logger.Error("config reload failed", "error", err)
					return
				}
				fmt.Printf("🔄 Configuration reloaded from %s, restarted from a fresh model\n", configPath)
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("config watch stopped", "error", err)
			}
		}()
	}

	if err := ctl.Start(ctx); err != nil {
		log.Fatalf("Error starting run: %v", err)
	}
	fmt.Printf("▶️  Run %s started\n", ctl.RunID())

	if showWindow {
		fmt.Printf("⌨️  Keys: s start, x stop, r reset, q/Esc quit\n")
		if err := window.New(mailbox, ctl, logger).Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("window closed", "error", err)
		}
	} else {
		waitHeadless(ctx, ctl, watch)
	}

	if ctl.State() == controller.Running {
		if err := ctl.Stop(); err != nil {
			logger.Warn("stop failed", "error", err)
		}
	}
	ctl.Wait()

	if preview != nil {
		if bg, ok := ctl.Background(); ok {
			if err := preview.Save("background", bg); err != nil {
				logger.Warn("background not saved", "error", err)
			}
		}
		fmt.Printf("💾 %d preview frames written to %s\n", preview.Written(), outputDir)
	}
	printSummary(ctl)
}

// openSource picks exactly one input from the flags.
func openSource(videoPath, framesDir string, framesFPS float64, deviceID int, demo bool, demoSize string) (controller.Source, error) {
	chosen := 0
	for _, set := range []bool{videoPath != "", framesDir != "", deviceID >= 0, demo} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return nil, fmt.Errorf("exactly one of -video, -frames, -device or -demo is required")
	}

	switch {
	case videoPath != "":
		fmt.Printf("🎞️  Processing video: %s\n", videoPath)
		return capture.OpenFile(videoPath)
	case framesDir != "":
		fmt.Printf("🖼️  Processing frames: %s\n", framesDir)
		return source.OpenSequence(framesDir, framesFPS)
	case deviceID >= 0:
		fmt.Printf("📷 Starting motion detection on camera device: %v\n", deviceID)
		return capture.OpenDevice(deviceID)
	default:
		var w, h int
		if _, err := fmt.Sscanf(demoSize, "%dx%d", &w, &h); err != nil {
			return nil, fmt.Errorf("invalid -demo-size %q: %w", demoSize, err)
		}
		fmt.Printf("🧪 Running demo scene %dx%d, %d frames\n", w, h, DemoFrames)
		return source.NewSynthetic(source.DemoScene(w, h, DemoFrames))
	}
}

// applyConfig restarts processing with cfg from a fresh model.
func applyConfig(ctx context.Context, ctl *controller.Controller, cfg config.Config) error {
	if err := ctl.Reset(); err != nil {
		return err
	}
	if err := ctl.Configure(cfg); err != nil {
		return err
	}
	return ctl.Start(ctx)
}

// waitHeadless blocks until the run completes or ctx is done. With keepAlive
// a completed run keeps the process up for the next config reload.
func waitHeadless(ctx context.Context, ctl *controller.Controller, keepAlive bool) {
	ticker := time.NewTicker(statePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctl.State() == controller.Completed && !keepAlive {
				return
			}
		}
	}
}

func fanOut(sinks []controller.Display) controller.Display {
	return controller.DisplayFunc(func(out controller.Output) {
		for _, s := range sinks {
			s.Show(out)
		}
	})
}

// resolutionReporter prints the source resolution once per run.
func resolutionReporter() controller.Display {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	return controller.DisplayFunc(func(out controller.Output) {
		if out.Original == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if seen[out.RunID] {
			return
		}
		seen[out.RunID] = true

		w, h := out.Original.Bounds().Dx(), out.Original.Bounds().Dy()
		res, ok := images.ResolutionOf(w, h)
		if !ok {
			if nearest, found := images.HighestResolutionUnder(w, h); found {
				fmt.Printf("📐 Resolution: %s (fits %s)\n", res, nearest.Name)
				return
			}
		}
		fmt.Printf("📐 Resolution: %s\n", res)
	})
}

func printBanner(cfg config.Config, src controller.Source) {
	fmt.Printf("🎯 Motion detection configuration:\n")
	fmt.Printf("   Detection color:   %s\n", cfg.DetectionColor)
	fmt.Printf("   Target frame rate: %.1f fps (source %.1f fps)\n", cfg.TargetFrameRate, src.FrameRate())
	fmt.Printf("   Frame skip factor: %d (%s)\n", cfg.FrameSkipFactor, cfg.SkipPolicy)
	fmt.Printf("   Resize factor:     %.2f\n", cfg.ResizeFactor)
	fmt.Printf("   Learning frames:   %d\n", cfg.LearningFrameCount)
	fmt.Printf("   Min blob area:     %.0f px²\n", cfg.MinBlobArea)
	fmt.Printf("   Model:             %d components, threshold %.1f, history %d, shadows %v\n",
		cfg.Model.MaxComponents, cfg.Model.MatchThreshold, cfg.Model.History, cfg.Model.DetectShadows)
	if n := src.FrameCount(); n > 0 {
		fmt.Printf("   Source frames:     %d\n", n)
	}
}

func printSummary(ctl *controller.Controller) {
	s := ctl.Stats()
	fmt.Printf("📊 %s\n", ctl.Status())
	fmt.Printf("   Frames read:       %d\n", s.FramesRead)
	fmt.Printf("   Frames detected:   %d (%d skipped)\n", s.FramesDetected, s.FramesSkipped)
	fmt.Printf("   Objects detected:  %d\n", s.ObjectsDetected)
}
