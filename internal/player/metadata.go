package player

import (
	"fmt"
	"strconv"
	"strings"
)

// metadataFormat is the playerctl --format template producing the eight
// positional fields the follower line codec expects.
const metadataFormat = "{{status}}|{{playerName}}|{{title}}|{{artist}}|{{mpris:length}}|{{mpris:artUrl}}|{{position}}|{{xesam:url}}"

// Metadata is one decoded follower line.
type Metadata struct {
	Status   string
	Player   string
	Title    string
	Artist   string
	Length   float64 // seconds
	ArtURL   string
	Position float64 // seconds
	URL      string
}

// ParseLine decodes one follower output line. The wire format is eight
// pipe-separated fields; length and position arrive in microseconds.
func ParseLine(line string) (Metadata, error) {
	parts := strings.SplitN(line, "|", 8)
	if len(parts) != 8 {
		return Metadata{}, fmt.Errorf("malformed metadata line: %d fields", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	m := Metadata{
		Status: parts[0],
		Player: parts[1],
		Title:  parts[2],
		Artist: parts[3],
		ArtURL: parts[5],
		URL:    parts[7],
	}
	if us, err := strconv.ParseFloat(parts[4], 64); err == nil {
		m.Length = us / 1e6
	}
	if us, err := strconv.ParseFloat(parts[6], 64); err == nil {
		m.Position = us / 1e6
	}
	return m, nil
}

// Significant reports whether the line differs from prev in a way that
// warrants a capability refresh. Position-only movement does not.
func (m Metadata) Significant(prev Metadata) bool {
	return m.Status != prev.Status ||
		m.Title != prev.Title ||
		m.Artist != prev.Artist ||
		m.URL != prev.URL
}
