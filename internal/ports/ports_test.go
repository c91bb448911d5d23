package ports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ids-go/internal/config"
	"ids-go/internal/ids"
	"ids-go/internal/testutil"
)

const tcpTable = `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 00000000:0016 00000000:0000 0A 00000000:00000000 00:00000000 00000000     0        0 20817 1 0000000000000000 100 0 0 10 0
   1: 0100007F:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 31877 1 0000000000000000 100 0 0 10 0
   2: 0F02000A:0016 0202000A:D8E2 01 00000000:00000000 02:000A7B2E 00000000     0        0 33120 4 0000000000000000 20 4 29 10 -1
`

const udpTable = `   sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode ref pointer drops
  312: 00000000:0044 00000000:0000 07 00000000:00000000 00:00000000 00000000     0        0 17451 2 0000000000000000 0
  840: 0F02000A:9C5A 08080808:0035 01 00000000:00000000 00:00000000 00000000  1000        0 40122 2 0000000000000000 0
`

func writeTable(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestProcNetEnumerator_ListeningPorts(t *testing.T) {
	dir := t.TempDir()
	tcp := writeTable(t, dir, "tcp", tcpTable)
	udp := writeTable(t, dir, "udp", udpTable)

	t.Run("keeps only listening sockets", func(t *testing.T) {
		e := NewProcNetEnumerator(ids.NewNopLogger())
		e.TCPPaths = []string{tcp, filepath.Join(dir, "tcp6")}
		e.UDPPaths = []string{udp}

		got := e.ListeningPorts(context.Background())

		require.False(t, got.Failed())
		assert.Equal(t, []int{22, 8080}, got.TCP)
		assert.Equal(t, []int{68}, got.UDP)
	})

	t.Run("no readable table fails the set", func(t *testing.T) {
		logger := testutil.NewRecordingLogger()
		e := NewProcNetEnumerator(logger)
		e.TCPPaths = []string{filepath.Join(dir, "missing")}
		e.UDPPaths = []string{udp}

		got := e.ListeningPorts(context.Background())

		assert.True(t, got.Failed())
		require.Len(t, logger.Entries("error"), 1)
	})

	t.Run("cancelled context fails the set", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := NewProcNetEnumerator(ids.NewNopLogger())
		e.TCPPaths = []string{tcp}
		e.UDPPaths = []string{udp}

		assert.True(t, e.ListeningPorts(ctx).Failed())
	})
}

func TestPsutilEnumerator_ListeningPorts(t *testing.T) {
	conns := []net.ConnectionStat{
		{Type: syscall.SOCK_STREAM, Status: "LISTEN", Laddr: net.Addr{IP: "0.0.0.0", Port: 22}},
		{Type: syscall.SOCK_STREAM, Status: "ESTABLISHED", Laddr: net.Addr{IP: "10.0.2.15", Port: 22}, Raddr: net.Addr{IP: "10.0.2.2", Port: 55522}},
		{Type: syscall.SOCK_DGRAM, Status: "NONE", Laddr: net.Addr{IP: "0.0.0.0", Port: 68}},
		{Type: syscall.SOCK_DGRAM, Status: "NONE", Laddr: net.Addr{IP: "10.0.2.15", Port: 40026}, Raddr: net.Addr{IP: "8.8.8.8", Port: 53}},
		{Type: syscall.SOCK_STREAM, Status: "LISTEN", Laddr: net.Addr{IP: "::", Port: 22}},
	}

	t.Run("classifies sockets", func(t *testing.T) {
		e := &PsutilEnumerator{
			connections: func(_ context.Context, kind string) ([]net.ConnectionStat, error) {
				assert.Equal(t, "inet", kind)
				return conns, nil
			},
			logger: ids.NewNopLogger(),
		}

		got := e.ListeningPorts(context.Background())

		require.False(t, got.Failed())
		assert.Equal(t, []int{22, 22}, got.TCP)
		assert.Equal(t, []int{68}, got.UDP)
	})

	t.Run("nothing listening is an empty set, not a failure", func(t *testing.T) {
		e := &PsutilEnumerator{
			connections: func(context.Context, string) ([]net.ConnectionStat, error) { return nil, nil },
			logger:      ids.NewNopLogger(),
		}

		got := e.ListeningPorts(context.Background())

		assert.False(t, got.Failed())
		assert.Empty(t, got.TCP)
		assert.NotNil(t, got.TCP)
	})

	t.Run("enumeration error yields the failure sentinel", func(t *testing.T) {
		logger := testutil.NewRecordingLogger()
		e := &PsutilEnumerator{
			connections: func(context.Context, string) ([]net.ConnectionStat, error) {
				return nil, errors.New("permission denied")
			},
			logger: logger,
		}

		assert.True(t, e.ListeningPorts(context.Background()).Failed())
		entries := logger.Entries("error")
		require.Len(t, entries, 1)
		op, _ := entries[0].Field("op")
		assert.Equal(t, "ports", op)
	})
}

func TestNewEnumeratorFromConfig(t *testing.T) {
	logger := ids.NewNopLogger()

	e, err := NewEnumeratorFromConfig(config.PortsConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = NewEnumeratorFromConfig(config.PortsConfig{Enabled: true}, logger)
	require.NoError(t, err)
	assert.IsType(t, &PsutilEnumerator{}, e)

	e, err = NewEnumeratorFromConfig(config.PortsConfig{Enabled: true, Enumerator: "procnet"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &ProcNetEnumerator{}, e)

	_, err = NewEnumeratorFromConfig(config.PortsConfig{Enabled: true, Enumerator: "netstat"}, logger)
	assert.Error(t, err)
}
