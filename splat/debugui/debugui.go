// Package debugui provides an immediate-mode playback overlay for splat
// sessions using Dear ImGui. It renders transport controls, decode timing
// and cache state; the host owns the ImGui frame lifecycle.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
)

// InputState reports whether Dear ImGui is consuming input this frame.
// Hosts use it to suppress their own keyboard/mouse handling while the
// overlay is focused.
type InputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// CurrentInputState samples ImGui's input capture state. Call once per
// frame inside an active ImGui frame.
func CurrentInputState() InputState {
	io := imgui.CurrentIO()
	return InputState{
		WantCaptureMouse:    io.WantCaptureMouse(),
		WantCaptureKeyboard: io.WantCaptureKeyboard(),
	}
}
