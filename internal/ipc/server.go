package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"time"

	"mprisbridge/internal/player"
)

const (
	// maxWorkers bounds concurrent control-tool invocations so a burst
	// of requests cannot fork-bomb the host.
	maxWorkers = 4
	// commandTimeout bounds one control-tool invocation.
	commandTimeout = 5 * time.Second
)

// Server wraps the UNIX listener for the control channel.
type Server struct {
	ln   net.Listener
	path string

	ctl      player.Controller
	selected func() (string, bool)
	sem      chan struct{}
}

// Listen binds the control socket. A stale socket file left behind by a
// crashed process is removed if nothing answers on it. A bind failure
// is returned to the caller; the daemon treats it as fatal.
func Listen(path string, ctl player.Controller, selected func() (string, bool)) (*Server, error) {
	if _, err := os.Stat(path); err == nil && !probe(path) {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("bind control socket %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, err
	}

	s := &Server{
		ln:       ln,
		path:     path,
		ctl:      ctl,
		selected: selected,
		sem:      make(chan struct{}, maxWorkers),
	}
	go s.serve()
	return s, nil
}

// Close stops accepting and unlinks the socket.
func (s *Server) Close() error {
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			return err
		}
	}
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(c)
	}
}

// handleConnection answers every request line with exactly one response
// line, in order, until the peer hangs up. Blank lines are not requests
// and get no response.
func (s *Server) handleConnection(c net.Conn) {
	defer c.Close()
	sc := bufio.NewScanner(c)
	for sc.Scan() {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		resp := Response{OK: s.dispatch(raw)}
		out, _ := json.Marshal(resp)
		if _, err := fmt.Fprintf(c, "%s\n", out); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(raw []byte) bool {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("ipc: malformed request: %v", err)
		return false
	}

	if req.Cmd == CmdPing {
		return true
	}

	// Command execution shells out and may block; the semaphore bounds
	// how many invocations run at once.
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	return s.execute(req)
}

func (s *Server) execute(req Request) bool {
	name := req.Player
	if name == "" {
		var ok bool
		if name, ok = s.selected(); !ok {
			log.Printf("ipc: %s: no target player", req.Cmd)
			return false
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch req.Cmd {
	case CmdPlayPause, CmdNext, CmdPrevious:
		err = s.ctl.Command(ctx, name, req.Cmd)
	case CmdSeek:
		if req.Offset == nil {
			log.Printf("ipc: seek without offset")
			return false
		}
		err = s.ctl.Command(ctx, name, "position", seekArg(*req.Offset))
	case CmdSetPosition:
		if req.Position == nil || *req.Position < 0 {
			log.Printf("ipc: set-position without a valid position")
			return false
		}
		err = s.ctl.Command(ctx, name, "position", fmt.Sprintf("%d", int64(*req.Position)))
	default:
		log.Printf("ipc: unknown command %q", req.Cmd)
		return false
	}

	if err != nil {
		log.Printf("ipc: %s for %s: %v", req.Cmd, name, err)
		return false
	}
	return true
}

// seekArg renders a relative offset the way the control tool expects:
// whole seconds with a trailing direction sign, e.g. "10-" or "5+".
func seekArg(offset float64) string {
	secs := int64(math.Abs(offset))
	if offset < 0 {
		return fmt.Sprintf("%d-", secs)
	}
	return fmt.Sprintf("%d+", secs)
}

// probe reports whether something is accepting on the socket.
func probe(path string) bool {
	conn, err := net.DialTimeout("unix", path, 300*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
