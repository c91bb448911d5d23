package ports

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/weaveworks/procspy"

	"ids-go/internal/ids"
)

// Kernel socket states as printed in /proc/net.
const (
	tcpListeningState = 10 // TCP_LISTEN
	udpUnconnected    = 7  // TCP_CLOSE, a bound UDP socket with no peer
)

var (
	ProcNetTCPPaths = []string{"/proc/net/tcp", "/proc/net/tcp6"}
	ProcNetUDPPaths = []string{"/proc/net/udp", "/proc/net/udp6"}
)

// ProcNetEnumerator parses the kernel's /proc/net socket tables.
type ProcNetEnumerator struct {
	TCPPaths []string
	UDPPaths []string
	logger   ids.Logger
}

// NewProcNetEnumerator creates an enumerator reading the default /proc/net tables.
func NewProcNetEnumerator(logger ids.Logger) *ProcNetEnumerator {
	return &ProcNetEnumerator{
		TCPPaths: ProcNetTCPPaths,
		UDPPaths: ProcNetUDPPaths,
		logger:   logger,
	}
}

// ListeningPorts reads every table once. A missing table (for example tcp6 on
// a host without IPv6) is skipped; any other read failure fails the whole set.
func (e *ProcNetEnumerator) ListeningPorts(ctx context.Context) ids.PortSet {
	set := ids.NewPortSet()

	tcp, err := readListening(ctx, e.TCPPaths, tcpListeningState)
	if err != nil {
		e.logger.Error("enumerating listening ports", "op", "ports", "enumerator", "procnet", "paths", e.TCPPaths, "error", err)
		return ids.FailedPortSet()
	}
	udp, err := readListening(ctx, e.UDPPaths, udpUnconnected)
	if err != nil {
		e.logger.Error("enumerating listening ports", "op", "ports", "enumerator", "procnet", "paths", e.UDPPaths, "error", err)
		return ids.FailedPortSet()
	}

	set.TCP = append(set.TCP, tcp...)
	set.UDP = append(set.UDP, udp...)
	return set
}

func readListening(ctx context.Context, paths []string, state uint) ([]int, error) {
	var ports []int
	read := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to ReadFile(%s): %w", path, err)
		}
		read++
		conns := procspy.NewProcNet(buf, state)
		for c := conns.Next(); c != nil; c = conns.Next() {
			ports = append(ports, int(c.LocalPort))
		}
	}
	if read == 0 && len(paths) > 0 {
		return nil, fmt.Errorf("none of %v could be read", paths)
	}
	return ports, nil
}

// Compile-time check that ProcNetEnumerator implements ids.PortEnumerator interface
var _ ids.PortEnumerator = (*ProcNetEnumerator)(nil)
