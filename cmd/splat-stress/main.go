package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/plus3/splatplay/splat"
	"github.com/plus3/splatplay/splat/ply"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the playback loop should run for.")
	frameCount := flag.Int("frames", 120, "The number of synthetic frames to generate.")
	pointCount := flag.Int("points", 50000, "The number of points per synthetic frame.")
	fps := flag.Float64("fps", 30, "The autoplay frame rate.")
	preload := flag.Bool("preload", false, "Decode the whole sequence up front instead of on demand.")
	dir := flag.String("dir", "", "Play an existing frame directory instead of generating one.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	log.Println("Starting splat playback stress test...")

	// 1. Source directory: generate a synthetic sequence unless one was given
	sourceDir := *dir
	if sourceDir == "" {
		tmp, err := os.MkdirTemp("", "splat-stress")
		if err != nil {
			log.Fatalf("Failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(tmp)

		log.Printf("Generating %d frames of %d points...\n", *frameCount, *pointCount)
		if err := generateSequence(tmp, *frameCount, *pointCount); err != nil {
			log.Fatalf("Failed to generate sequence: %v", err)
		}
		sourceDir = tmp
		log.Println("Generation complete.")
	}

	// 2. Open the session
	report := &Report{
		Duration:       *duration,
		Frames:         *frameCount,
		Points:         *pointCount,
		FPS:            *fps,
		Preload:        *preload,
		GCPauseMetrics: *gcPauseMetrics,
		AdvanceTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	session, err := splat.Open(sourceDir, splat.Options{
		Mode:    splat.ModeAutoplay,
		FPS:     *fps,
		Preload: *preload,
	})
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	defer session.Close()

	// 3. Drive the render-loop surface
	log.Printf("Playing for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	var totalTicks, totalFlips int64
	lastShown := -1

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			advanceStart := time.Now()
			if err := session.Advance(advanceStart); err != nil {
				log.Printf("Advance error: %v", err)
			}
			report.AdvanceTime.Samples = append(report.AdvanceTime.Samples, time.Since(advanceStart))

			if _, shown := session.Active(); shown != lastShown {
				lastShown = shown
				totalFlips++
			}
			totalTicks++

			// Roughly a 240 Hz host loop, to keep advance cheapness honest.
			time.Sleep(4 * time.Millisecond)
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalTicks = totalTicks
	report.FramesPresented = totalFlips
	report.SessionStats = session.CollectStats()
	report.AdvanceTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Println("Playback finished.")

	// 4. Generate Report to Console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}

// generateSequence writes frameCount synthetic PLY frames into dir, each a
// random cloud of pointCount splats.
func generateSequence(dir string, frameCount, pointCount int) error {
	rng := rand.New(rand.NewSource(1))
	points := make([]ply.Point, pointCount)
	for i := 0; i < frameCount; i++ {
		for j := range points {
			points[j] = ply.Point{
				Position:     [3]float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1},
				LogScale:     [3]float32{-rng.Float32() * 5, -rng.Float32() * 5, -rng.Float32() * 5},
				LogitOpacity: rng.Float32()*8 - 4,
				Rotation:     [4]float32{1, 0, 0, 0},
				SH:           [3]float32{rng.Float32(), rng.Float32(), rng.Float32()},
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%06d.ply", i+1))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := ply.Encode(f, points, ply.ColorSH); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
