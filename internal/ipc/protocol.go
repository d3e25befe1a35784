// Package ipc implements the local control channel: line-delimited JSON
// over a user-owned UNIX socket.
package ipc

// Command kinds accepted on the control socket.
const (
	CmdPlayPause   = "play-pause"
	CmdNext        = "next"
	CmdPrevious    = "previous"
	CmdSeek        = "seek"
	CmdSetPosition = "set-position"
	// CmdPing is a liveness probe used by the client tooling; it never
	// touches a player.
	CmdPing = "ping"
)

// Request is one control command. Player is optional; when empty the
// currently selected player is the target. Offset and Position are
// pointers so "absent" and "zero" stay distinguishable.
type Request struct {
	Cmd      string   `json:"cmd"`
	Player   string   `json:"player,omitempty"`
	Offset   *float64 `json:"offset,omitempty"`
	Position *float64 `json:"position,omitempty"`
}

// Response is the single reply line for a request.
type Response struct {
	OK bool `json:"ok"`
}
