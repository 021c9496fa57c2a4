// Package ebiten provides Dear ImGui backend integration for Ebiten-hosted
// playback viewers. Use this to render the debugui overlay inside an Ebiten
// game loop.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}
