package ids

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeSnapshot serializes s. Both formats decode to the same Snapshot.
func EncodeSnapshot(s *Snapshot, format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCompact:
		data, err = json.Marshal(s)
	default:
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a serialized Snapshot. Any malformed input yields an
// error matching ErrSerialization.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if s.BuildTime == "" {
		return nil, fmt.Errorf("%w: missing build_time", ErrSerialization)
	}
	if s.Files == nil {
		return nil, fmt.Errorf("%w: missing files", ErrSerialization)
	}

	// A baseline without port data must not read back as "no ports listening".
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	ports, ok := raw["listening_ports"]
	if !ok || bytes.Equal(bytes.TrimSpace(ports), []byte("null")) {
		return nil, fmt.Errorf("%w: missing listening_ports", ErrSerialization)
	}

	for path, record := range s.Files {
		if err := validateRecord(record); err != nil {
			return nil, fmt.Errorf("%w: record for %s: %v", ErrSerialization, path, err)
		}
	}
	return &s, nil
}

func validateRecord(r *FileRecord) error {
	if r == nil {
		return fmt.Errorf("null record")
	}
	for field, value := range map[string]string{
		AlgMD5:    r.MD5,
		AlgSHA256: r.SHA256,
		AlgSHA512: r.SHA512,
		"size":    r.Size,
	} {
		if value == "" {
			return fmt.Errorf("missing %s", field)
		}
	}
	return nil
}
