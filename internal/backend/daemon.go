package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
)

// DaemonClient talks to a local cx daemon over a unix socket. The daemon
// protocol is one JSON request, a write-side close, then the full response.
type DaemonClient struct {
	socketPaths []string
	localOnly   bool
}

// daemonRequest is the ask request shape understood by the daemon.
type daemonRequest struct {
	Type      string `json:"type"`
	Query     string `json:"query"`
	LocalOnly bool   `json:"local_only"`
}

// NewDaemonClient creates a daemon client. The configured socket is tried
// first, then the per-user runtime socket.
func NewDaemonClient(socket string, localOnly bool) *DaemonClient {
	paths := []string{
		fmt.Sprintf("/run/user/%d/cx/daemon.sock", os.Getuid()),
	}
	if socket != "" {
		paths = append(paths, socket)
	}
	return &DaemonClient{socketPaths: paths, localOnly: localOnly}
}

// Name identifies this backend in logs.
func (d *DaemonClient) Name() string { return "daemon" }

// Query sends the ask request to the first socket that exists.
func (d *DaemonClient) Query(ctx context.Context, query string) (string, error) {
	socket := ""
	for _, path := range d.socketPaths {
		if _, err := os.Stat(path); err == nil {
			socket = path
			break
		}
	}
	if socket == "" {
		return "", fmt.Errorf("no daemon socket: %w", ErrUnavailable)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socket)
	if err != nil {
		return "", fmt.Errorf("dialing daemon: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	request, err := json.Marshal(daemonRequest{
		Type:      "ask",
		Query:     query,
		LocalOnly: d.localOnly,
	})
	if err != nil {
		return "", err
	}
	if _, err := conn.Write(request); err != nil {
		return "", fmt.Errorf("writing to daemon: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	response, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("reading daemon response: %w", err)
	}
	if len(response) == 0 {
		return "", fmt.Errorf("empty daemon response: %w", ErrUnavailable)
	}
	return string(response), nil
}
