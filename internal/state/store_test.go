package state

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testState() UiState {
	st := Empty("/tmp/cover.png")
	st.Name = "spotify"
	st.Title = "Song"
	st.Artist = "Band"
	st.Status = "Playing"
	st.SetPosition(61.7)
	st.SetLength(180)
	st.CanNext = 1
	return st
}

func TestPublishSnapshotAndRecordIdentical(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"), filepath.Join(dir, "events.jsonl"), false)

	st := testState()
	store.Publish(st)

	snap, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	events, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("events not written: %v", err)
	}
	lastLine := bytes.TrimSpace(events)
	if !bytes.Equal(snap, lastLine) {
		t.Fatalf("snapshot and record differ:\n%s\n%s", snap, lastLine)
	}

	var got UiState
	if err := json.Unmarshal(snap, &got); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if got != st {
		t.Fatalf("round trip mismatch: %+v != %+v", got, st)
	}
	if got.PositionStr != "1:01" {
		t.Fatalf("unexpected positionStr: %q", got.PositionStr)
	}
}

func TestPublishAppendsOneLinePerState(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"), filepath.Join(dir, "events.jsonl"), false)

	store.Publish(testState())
	second := testState()
	second.Title = "Other"
	store.Publish(second)

	data, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d", len(lines))
	}
	if store.Current().Title != "Other" {
		t.Fatalf("current state not updated: %+v", store.Current())
	}
}

func TestPublishFailureKeepsInMemoryState(t *testing.T) {
	store := NewStore("/nonexistent-root/state.json", "/nonexistent-root/events.jsonl", false)
	st := testState()
	store.Publish(st)
	if store.Current() != st {
		t.Fatalf("in-memory state must survive persistence failure")
	}
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{60, "1:00"},
		{61.2, "1:01"},
		{-5, "0:00"},
		{600, "10:00"},
	}
	for _, c := range cases {
		if got := FormatTime(c.in); got != c.want {
			t.Errorf("FormatTime(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 0); got != "hello" {
		t.Fatalf("zero limit must not truncate: %q", got)
	}
	if got := Truncate("hello", 5); got != "hello" {
		t.Fatalf("exact fit must not truncate: %q", got)
	}
	if got := Truncate("hello world", 6); got != "hello…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
