package ids

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// PortsErrorMarker is the serialized form of a failed port enumeration.
const PortsErrorMarker = "Error retrieving listening ports"

// PortEnumerator lists the ports the host is listening on.
// Implementations never return an error: a failed enumeration is reported
// through FailedPortSet so it can be embedded in a Snapshot.
type PortEnumerator interface {
	ListeningPorts(ctx context.Context) PortSet
}

// PortSet holds the locally bound listening ports per transport, in
// enumeration order. A failed enumeration is a distinct value, never an
// empty set.
type PortSet struct {
	TCP    []int
	UDP    []int
	failed bool
}

// NewPortSet returns an empty, successfully enumerated PortSet.
func NewPortSet() PortSet {
	return PortSet{TCP: []int{}, UDP: []int{}}
}

// FailedPortSet returns the enumeration-failure sentinel.
func FailedPortSet() PortSet {
	return PortSet{failed: true}
}

// Failed reports whether the enumeration that produced ps failed.
func (ps PortSet) Failed() bool {
	return ps.failed
}

type portSetJSON struct {
	TCP []int `json:"TCP"`
	UDP []int `json:"UDP"`
}

func (ps PortSet) MarshalJSON() ([]byte, error) {
	if ps.failed {
		return json.Marshal(PortsErrorMarker)
	}
	out := portSetJSON{TCP: ps.TCP, UDP: ps.UDP}
	if out.TCP == nil {
		out.TCP = []int{}
	}
	if out.UDP == nil {
		out.UDP = []int{}
	}
	return json.Marshal(out)
}

func (ps *PortSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var marker string
		if err := json.Unmarshal(trimmed, &marker); err != nil {
			return err
		}
		if marker != PortsErrorMarker {
			return fmt.Errorf("decoding listening ports: unexpected marker %q", marker)
		}
		*ps = FailedPortSet()
		return nil
	}

	var in portSetJSON
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return fmt.Errorf("decoding listening ports: %w", err)
	}
	*ps = NewPortSet()
	if in.TCP != nil {
		ps.TCP = in.TCP
	}
	if in.UDP != nil {
		ps.UDP = in.UDP
	}
	return nil
}
