package ids

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNoMirror is returned by push and pull when no mirror is configured.
var ErrNoMirror = errors.New("no baseline mirror configured")

// PushBaseline uploads the current baseline to the mirror.
func (s *Service) PushBaseline() error {
	if s.mirror == nil {
		return ErrNoMirror
	}
	if err := s.mirror.ValidateSetup(); err != nil {
		return fmt.Errorf("validating mirror: %w", err)
	}
	snapshot, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading baseline: %w", err)
	}
	return s.pushSnapshot(snapshot)
}

func (s *Service) pushSnapshot(snapshot *Snapshot) error {
	data, err := EncodeSnapshot(snapshot, FormatCompact)
	if err != nil {
		return err
	}

	if s.encryptor != nil {
		var enc bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &enc); err != nil {
			return fmt.Errorf("encrypting baseline: %w", err)
		}
		data = enc.Bytes()
	}

	if err := s.mirror.PutBaseline(s.hostID, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("uploading baseline: %w", err)
	}
	s.logger.Info("baseline pushed to mirror", "host_id", s.hostID, "bytes", len(data), "encrypted", s.encryptor != nil)
	return nil
}

// PullBaseline downloads the mirrored baseline and makes it the local
// baseline. passphrase unlocks the decryption key when the mirror is
// encrypted; it is ignored otherwise.
func (s *Service) PullBaseline(passphrase string, format Format) (*Snapshot, error) {
	if s.mirror == nil {
		return nil, ErrNoMirror
	}
	if err := s.mirror.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("validating mirror: %w", err)
	}

	var buf bytes.Buffer
	if err := s.mirror.GetBaseline(s.hostID, &buf); err != nil {
		return nil, fmt.Errorf("downloading baseline: %w", err)
	}

	data := buf.Bytes()
	if s.encryptor != nil {
		dc, err := s.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlocking decryption key: %w", err)
		}
		var plain bytes.Buffer
		if err := dc.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("decrypting baseline: %w", err)
		}
		data = plain.Bytes()
	}

	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if err := s.store.Persist(snapshot, format); err != nil {
		return nil, fmt.Errorf("persisting baseline: %w", err)
	}
	s.logger.Info("baseline restored from mirror", "host_id", s.hostID, "build_time", snapshot.BuildTime)
	return snapshot, nil
}

// MirrorRequiresPassphrase reports whether PullBaseline needs a passphrase.
func (s *Service) MirrorRequiresPassphrase() bool {
	return s.mirror != nil && s.encryptor != nil
}
