package ids

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

const (
	// ChunkSize is the read buffer used while hashing. It has no effect on the digests.
	ChunkSize = 8 * 1024

	maxFingerprintAttempts = 3
)

// Fingerprinter computes FileRecords through a FilesystemManager.
type Fingerprinter struct {
	fsmgr  FilesystemManager
	logger Logger
}

// NewFingerprinter creates a Fingerprinter reading through fsmgr.
func NewFingerprinter(fsmgr FilesystemManager, logger Logger) *Fingerprinter {
	return &Fingerprinter{fsmgr: fsmgr, logger: logger}
}

// Fingerprint hashes the content of path with MD5, SHA-256 and SHA-512 in a
// single pass and records its metadata from one stat of the open handle.
//
// If the file's metadata moves while it is being read, the measurement is
// repeated; after maxFingerprintAttempts it fails with ErrChangedDuringRead.
// Every error returned is a *PathError matching ErrPathUnreadable.
func (f *Fingerprinter) Fingerprint(path string) (*FileRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFingerprintAttempts; attempt++ {
		record, err := f.fingerprintOnce(path)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, ErrChangedDuringRead) {
			return nil, err
		}
		f.logger.Warn("file changed during fingerprinting, retrying",
			"path", path, "attempt", attempt)
		lastErr = err
	}
	return nil, lastErr
}

func (f *Fingerprinter) fingerprintOnce(path string) (*FileRecord, error) {
	file, err := f.fsmgr.Open(path)
	if err != nil {
		return nil, pathError("open", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, pathError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &PathError{Op: "open", Path: path, Kind: ErrNotRegular}
	}
	before, err := f.fsmgr.ExtractStatData(info)
	if err != nil {
		return nil, pathError("stat", path, err)
	}

	md5h := md5.New()
	sha256h := sha256.New()
	sha512h := sha512.New()
	w := io.MultiWriter(md5h, sha256h, sha512h)

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(w, onlyReader{file}, buf); err != nil {
		return nil, pathError("read", path, err)
	}

	// Re-stat to validate the file did not change under us.
	info2, err := f.fsmgr.Stat(path)
	if err != nil {
		return nil, pathError("stat", path, err)
	}
	after, err := f.fsmgr.ExtractStatData(info2)
	if err != nil {
		return nil, pathError("stat", path, err)
	}
	if err := validateStatUnchanged(before, after); err != nil {
		return nil, &PathError{Op: "read", Path: path, Kind: ErrChangedDuringRead, Err: err}
	}

	return newFileRecord(
		hex.EncodeToString(md5h.Sum(nil)),
		hex.EncodeToString(sha256h.Sum(nil)),
		hex.EncodeToString(sha512h.Sum(nil)),
		before,
	), nil
}

// onlyReader hides any WriterTo/ReaderFrom so CopyBuffer really uses the buffer.
type onlyReader struct {
	io.Reader
}

func validateStatUnchanged(before, after *StatData) error {
	switch {
	case before.Size != after.Size:
		return fmt.Errorf("size changed from %d to %d", before.Size, after.Size)
	case !before.ModTime.Equal(after.ModTime):
		return fmt.Errorf("mtime changed from %s to %s", FormatTime(before.ModTime), FormatTime(after.ModTime))
	case !before.Ctime.Equal(after.Ctime):
		return fmt.Errorf("ctime changed from %s to %s", FormatTime(before.Ctime), FormatTime(after.Ctime))
	case before.UID != after.UID || before.GID != after.GID:
		return fmt.Errorf("ownership changed from %d:%d to %d:%d", before.UID, before.GID, after.UID, after.GID)
	}
	return nil
}

// pathError classifies a filesystem error into the monitor's error kinds.
func pathError(op, path string, err error) *PathError {
	kind := ErrPathUnreadable
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = ErrPermission
	}
	return &PathError{Op: op, Path: path, Kind: kind, Err: err}
}
