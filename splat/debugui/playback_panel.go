package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/plus3/splatplay/splat"
)

// PlaybackPanel renders transport controls and playback statistics for one
// session. Create it once and call Render each frame inside an active
// ImGui frame.
type PlaybackPanel struct {
	historyFrames int
	decodeHistory []float32
	historyIndex  int
	lastDecode    time.Duration
}

func NewPlaybackPanel(historyFrames int) *PlaybackPanel {
	return &PlaybackPanel{
		historyFrames: historyFrames,
		decodeHistory: make([]float32, historyFrames),
	}
}

// Render draws the panel and forwards transport button presses to the
// session.
func (pp *PlaybackPanel) Render(s *splat.Session) {
	imgui.SetNextWindowPosV(imgui.NewVec2(10, 10), imgui.CondOnce, imgui.NewVec2(0, 0))
	imgui.SetNextWindowSizeV(imgui.NewVec2(320, 360), imgui.CondOnce)

	if !imgui.BeginV("Playback", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := s.CollectStats()

	imgui.Text(fmt.Sprintf("Frame: %d / %d", stats.CurrentIndex+1, stats.FrameCount))
	imgui.Text(fmt.Sprintf("Displayed: %d  Phase: %s", stats.DisplayedIndex, stats.Phase))

	if imgui.Button("Prev") {
		s.Previous()
	}
	imgui.SameLine()
	if imgui.Button("Next") {
		s.Next()
	}
	imgui.SameLine()
	if stats.Paused {
		if imgui.Button("Play") {
			s.SetPaused(false)
		}
	} else {
		if imgui.Button("Pause") {
			s.SetPaused(true)
		}
	}
	imgui.SameLine()
	if imgui.Button("Rewind") {
		_ = s.Seek(0)
	}

	imgui.Separator()

	if stats.LastDecode != pp.lastDecode && stats.LastDecode > 0 {
		pp.lastDecode = stats.LastDecode
		pp.decodeHistory[pp.historyIndex] = float32(stats.LastDecode.Microseconds()) / 1000.0
		pp.historyIndex = (pp.historyIndex + 1) % pp.historyFrames
	}

	imgui.Text(fmt.Sprintf("Decodes: %d  Superseded: %d", stats.DecodeCount, stats.Superseded))
	if stats.DecodeCount > 0 {
		imgui.Text(fmt.Sprintf("Decode avg %.2f ms (min %.2f / max %.2f)",
			ms(stats.AvgDecode), ms(stats.MinDecode), ms(stats.MaxDecode)))
	}
	imgui.Text("Decode Time Graph (ms)")
	imgui.PlotLinesFloatPtr("##decodetime", &pp.decodeHistory[0], int32(len(pp.decodeHistory)))

	imgui.Separator()
	imgui.Text(fmt.Sprintf("Resident: %d frames (%.2f MB)",
		stats.ResidentFrames, float64(stats.ResidentBytes)/1024/1024))

	if len(stats.FailedIndices) > 0 {
		if imgui.TreeNodeStr("Unavailable Frames") {
			const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
			if imgui.BeginTableV("FailedFramesTable", 1, tableFlags, imgui.NewVec2(0, 0), 0) {
				imgui.TableSetupColumn("Frame Index")
				imgui.TableHeadersRow()
				for _, idx := range stats.FailedIndices {
					imgui.TableNextRow()
					imgui.TableNextColumn()
					imgui.Text(fmt.Sprintf("%d", idx))
				}
				imgui.EndTable()
			}
			imgui.TreePop()
		}
	}

	imgui.End()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
