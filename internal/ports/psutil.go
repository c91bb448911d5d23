package ports

import (
	"context"
	"syscall"

	"github.com/shirou/gopsutil/v3/net"

	"ids-go/internal/ids"
)

// connectionsFunc matches net.ConnectionsWithContext.
type connectionsFunc func(ctx context.Context, kind string) ([]net.ConnectionStat, error)

// PsutilEnumerator lists listening sockets through gopsutil.
type PsutilEnumerator struct {
	connections connectionsFunc
	logger      ids.Logger
}

// NewPsutilEnumerator creates an enumerator backed by the host's socket table.
func NewPsutilEnumerator(logger ids.Logger) *PsutilEnumerator {
	return &PsutilEnumerator{connections: net.ConnectionsWithContext, logger: logger}
}

// ListeningPorts returns TCP sockets in LISTEN state and UDP sockets bound
// without a remote peer, in the order the kernel reports them.
func (e *PsutilEnumerator) ListeningPorts(ctx context.Context) ids.PortSet {
	conns, err := e.connections(ctx, "inet")
	if err != nil {
		e.logger.Error("enumerating listening ports", "op", "ports", "enumerator", "gopsutil", "error", err)
		return ids.FailedPortSet()
	}

	set := ids.NewPortSet()
	for _, c := range conns {
		switch c.Type {
		case syscall.SOCK_STREAM:
			if c.Status == "LISTEN" {
				set.TCP = append(set.TCP, int(c.Laddr.Port))
			}
		case syscall.SOCK_DGRAM:
			if c.Raddr.Port == 0 {
				set.UDP = append(set.UDP, int(c.Laddr.Port))
			}
		}
	}
	return set
}

// Compile-time check that PsutilEnumerator implements ids.PortEnumerator interface
var _ ids.PortEnumerator = (*PsutilEnumerator)(nil)
