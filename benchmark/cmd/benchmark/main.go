package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/nvr-ai/go-motion/benchmark"
	"github.com/nvr-ai/go-motion/config"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Pipeline configuration used by -resolutions")
		outputDir   = flag.String("output", "./benchmark_results", "Output directory for results")
		quick       = flag.Bool("quick", false, "Run quick benchmark scenarios")
		resolutions = flag.Bool("resolutions", false, "Compare standard camera resolutions")
		maxPixels   = flag.Int("max-pixels", 1920*1080, "Largest resolution for -resolutions")
		workers     = flag.Bool("workers", false, "Compare background model worker counts")
		timeout     = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
	)
	flag.Parse()

	if !*quick && !*resolutions && !*workers {
		*quick = true
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	suite := benchmark.NewSuite(*outputDir, logger)
	if *quick {
		suite.AddSet(benchmark.QuickScenarios())
	}
	if *resolutions {
		suite.AddSet(benchmark.ResolutionScenarios(cfg, *maxPixels))
	}
	if *workers {
		suite.AddSet(benchmark.WorkerScenarios(1280, 720))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("🏁 Running motion pipeline benchmarks, results in %s\n", *outputDir)
	if err := suite.RunAll(ctx); err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	for _, r := range suite.Results() {
		fmt.Printf("   %-32s %8.2f fps  apply %v\n", r.Scenario.Name, r.FramesPerSecond, r.StageDurations["apply"])
	}
}
