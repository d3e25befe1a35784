package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"mprisbridge/internal/state"
)

var (
	watchFormat      string
	watchTruncate    int
	watchPangoEscape bool
)

func init() {
	rootCmd.AddCommand(cmdWatch)
	cmdWatch.Flags().StringVar(&watchFormat, "format", "{artist}{sep}{title}", "Output template; placeholders: {name} {title} {artist} {sep} {status} {position} {length}")
	cmdWatch.Flags().IntVar(&watchTruncate, "truncate", 0, "Cap output length in characters (0 disables)")
	cmdWatch.Flags().BoolVar(&watchPangoEscape, "pango-escape", false, "Escape output for Pango markup consumers")
}

var cmdWatch = &cobra.Command{
	Use:   "watch",
	Short: "Print one formatted line per state change",
	Long:  `Follows the daemon's event stream and prints a formatted line for every published state transition. Meant to feed status bars.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		// Current state first so the consumer never starts blank.
		if data, err := os.ReadFile(cfg.Output.SnapshotPath); err == nil {
			var st state.UiState
			if json.Unmarshal(data, &st) == nil {
				printState(st)
			}
		}

		return tail(ctx, cfg.Output.EventsPath, func(line []byte) {
			var st state.UiState
			if err := json.Unmarshal(line, &st); err != nil {
				return
			}
			printState(st)
		})
	},
}

func printState(st state.UiState) {
	fmt.Fprintln(os.Stdout, formatState(st, watchFormat, watchTruncate, watchPangoEscape))
}

// formatState renders one event for the configured template. {sep}
// expands to " - " only when both artist and title are non-empty, so an
// empty side never leaves a dangling separator.
func formatState(st state.UiState, format string, truncate int, pango bool) string {
	sep := ""
	if st.Artist != "" && st.Title != "" {
		sep = " - "
	}
	line := strings.NewReplacer(
		"{name}", st.Name,
		"{title}", st.Title,
		"{artist}", st.Artist,
		"{sep}", sep,
		"{status}", st.Status,
		"{position}", st.PositionStr,
		"{length}", st.LengthStr,
	).Replace(format)
	line = state.Truncate(line, truncate)
	if pango {
		line = pangoEscape(line)
	}
	return line
}

func pangoEscape(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		"\"", "&quot;",
	).Replace(s)
}

// tail follows the append-only event stream, surviving the file not
// existing yet and delivering only complete lines.
func tail(ctx context.Context, path string, emit func([]byte)) error {
	f, err := waitForFile(ctx, path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	r := bufio.NewReader(f)
	var pending []byte
	for {
		chunk, err := r.ReadBytes('\n')
		if err == nil {
			line := append(pending, chunk...)
			pending = nil
			emit(line[:len(line)-1])
			continue
		}
		if err != io.EOF {
			return err
		}
		pending = append(pending, chunk...)

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != path || !ev.Op.Has(fsnotify.Write) {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
