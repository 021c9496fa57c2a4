package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/splatplay/splat"
)

type Report struct {
	// Configuration
	Duration time.Duration
	Frames   int
	Points   int
	FPS      float64
	Preload  bool

	// Results
	TotalTicks      int64
	FramesPresented int64
	TotalTime       time.Duration
	AdvanceTime     Stats
	SessionStats    splat.SessionStats
	GCPauseMetrics  bool
	MemStatsStart   runtime.MemStats
	MemStatsEnd     runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Splat Playback Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Frames:** {{.Frames}} x {{.Points}} points
- **Autoplay Rate:** {{.FPS}} fps
- **Preload:** {{.Preload}}

## Playback Results
- **Render Ticks:** {{.TotalTicks}}
- **Frames Presented:** {{.FramesPresented}}
- **Total Test Time:** {{.TotalTime}}
- **Advance Time (Tick):**
  - **Avg:** {{.AdvanceTime.Avg}}
  - **Min:** {{.AdvanceTime.Min}}
  - **Max:** {{.AdvanceTime.Max}}
- **Decode Time (Frame):**
  - **Count:** {{.SessionStats.DecodeCount}}
  - **Avg:** {{.SessionStats.AvgDecode}}
  - **Min:** {{.SessionStats.MinDecode}}
  - **Max:** {{.SessionStats.MaxDecode}}
- **Superseded Requests:** {{.SessionStats.Superseded}}
- **Resident Frames at End:** {{.SessionStats.ResidentFrames}} ({{mb .SessionStats.ResidentBytes}} MB)
- **Unavailable Frames:** {{len .SessionStats.FailedIndices}}

## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{.MemStatsStart.Sys}} (start) -> {{.MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
