// Package state holds the UI-facing projection of the selected player
// and persists it for external consumers.
package state

import (
	"fmt"
	"strings"
)

// UiState is the externally visible truth about the selected player.
// Field names and order are part of the on-disk contract.
type UiState struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Status      string  `json:"status"`
	Position    float64 `json:"position"`
	PositionStr string  `json:"positionStr"`
	Length      float64 `json:"length"`
	LengthStr   string  `json:"lengthStr"`
	Thumbnail   string  `json:"thumbnail"`
	CanNext     int     `json:"canNext"`
	CanPrev     int     `json:"canPrev"`
}

// Empty returns a blank state carrying the default cover.
func Empty(defaultCover string) UiState {
	return UiState{
		PositionStr: FormatTime(0),
		LengthStr:   FormatTime(0),
		Thumbnail:   defaultCover,
	}
}

// SetPosition stores the position in seconds plus its M:SS form.
func (s *UiState) SetPosition(seconds float64) {
	s.Position = seconds
	s.PositionStr = FormatTime(seconds)
}

// SetLength stores the length in seconds plus its M:SS form.
func (s *UiState) SetLength(seconds float64) {
	s.Length = seconds
	s.LengthStr = FormatTime(seconds)
}

// FormatTime renders whole seconds as M:SS, flooring fractions.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	secs := int64(seconds)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Truncate caps s at max runes, appending an ellipsis when cut.
// max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}
