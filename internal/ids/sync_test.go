package ids_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"ids-go/internal/baseline"
	"ids-go/internal/ids"
	"ids-go/internal/testutil"
)

func newMirroredService(t *testing.T, enc ids.Encryptor) (*ids.Service, *testutil.MockFilesystemManager, *baseline.MemoryStore, ids.Mirror) {
	t.Helper()
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/etc/hello", []byte("hello"))
	store := baseline.NewMemoryStore()
	mirror := testutil.NewTestMirror()

	svc := ids.NewService(fsmgr, nil, store, nil, ids.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	svc.SetMirror("host-1", mirror, enc)
	return svc, fsmgr, store, mirror
}

func TestService_Build_pushesToMirror(t *testing.T) {
	svc, _, _, mirror := newMirroredService(t, nil)

	built, err := svc.Build(context.Background(), []string{"/etc/hello"}, ids.FormatReadable)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var buf bytes.Buffer
	if err := mirror.GetBaseline("host-1", &buf); err != nil {
		t.Fatalf("GetBaseline() error = %v", err)
	}
	mirrored, err := ids.DecodeSnapshot(buf.Bytes())
	if err != nil {
		t.Fatalf("mirrored baseline does not decode: %v", err)
	}
	if !reflect.DeepEqual(mirrored, built) {
		t.Errorf("mirrored = %+v, want %+v", mirrored, built)
	}
}

func TestService_PullBaseline(t *testing.T) {
	t.Run("restores a plaintext baseline", func(t *testing.T) {
		svc, _, store, _ := newMirroredService(t, nil)
		built, err := svc.Build(context.Background(), []string{"/etc/hello"}, ids.FormatReadable)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}

		// Simulate the local baseline being tampered with.
		tampered := *built
		tampered.BuildTime = "1970-01-01 00:00:00.000000"
		if err := store.Persist(&tampered, ids.FormatReadable); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}

		pulled, err := svc.PullBaseline("", ids.FormatCompact)
		if err != nil {
			t.Fatalf("PullBaseline() error = %v", err)
		}
		if pulled.BuildTime != built.BuildTime {
			t.Errorf("pulled BuildTime = %q, want %q", pulled.BuildTime, built.BuildTime)
		}
		loaded, err := svc.Baseline()
		if err != nil {
			t.Fatalf("Baseline() error = %v", err)
		}
		if loaded.BuildTime != built.BuildTime {
			t.Errorf("local baseline not restored: %q", loaded.BuildTime)
		}
		if bytes.Contains(store.Bytes(), []byte("\n")) {
			t.Error("restored baseline not written in compact format")
		}
	})

	t.Run("encrypts and decrypts with the passphrase", func(t *testing.T) {
		svc, _, _, mirror := newMirroredService(t, testutil.NewTestEncryptor())
		if !svc.MirrorRequiresPassphrase() {
			t.Error("MirrorRequiresPassphrase() = false with an encryptor")
		}
		if _, err := svc.Build(context.Background(), []string{"/etc/hello"}, ids.FormatReadable); err != nil {
			t.Fatalf("Build() error = %v", err)
		}

		var raw bytes.Buffer
		if err := mirror.GetBaseline("host-1", &raw); err != nil {
			t.Fatalf("GetBaseline() error = %v", err)
		}
		if _, err := ids.DecodeSnapshot(raw.Bytes()); err == nil {
			t.Error("mirrored baseline is readable without decryption")
		}

		if _, err := svc.PullBaseline("wrong", ids.FormatReadable); err == nil {
			t.Error("PullBaseline() with wrong passphrase succeeded")
		}
		pulled, err := svc.PullBaseline(testutil.TestPassphrase, ids.FormatReadable)
		if err != nil {
			t.Fatalf("PullBaseline() error = %v", err)
		}
		if _, ok := pulled.Files["/etc/hello"]; !ok {
			t.Error("pulled baseline lacks /etc/hello")
		}
	})

	t.Run("empty mirror", func(t *testing.T) {
		svc, _, _, _ := newMirroredService(t, nil)
		_, err := svc.PullBaseline("", ids.FormatReadable)
		if !errors.Is(err, ids.ErrMirrorEmpty) {
			t.Errorf("PullBaseline() error = %v, want ErrMirrorEmpty", err)
		}
	})
}

func TestService_PushBaseline(t *testing.T) {
	t.Run("uploads the current baseline", func(t *testing.T) {
		svc, _, store, mirror := newMirroredService(t, nil)
		if err := store.Persist(sampleSnapshot(), ids.FormatReadable); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
		if err := svc.PushBaseline(); err != nil {
			t.Fatalf("PushBaseline() error = %v", err)
		}

		var buf bytes.Buffer
		if err := mirror.GetBaseline("host-1", &buf); err != nil {
			t.Fatalf("GetBaseline() error = %v", err)
		}
		got, err := ids.DecodeSnapshot(buf.Bytes())
		if err != nil {
			t.Fatalf("DecodeSnapshot() error = %v", err)
		}
		if !reflect.DeepEqual(got, sampleSnapshot()) {
			t.Errorf("pushed = %+v, want %+v", got, sampleSnapshot())
		}
	})

	t.Run("without a baseline", func(t *testing.T) {
		svc, _, _, _ := newMirroredService(t, nil)
		if err := svc.PushBaseline(); !errors.Is(err, ids.ErrBaselineMissing) {
			t.Errorf("PushBaseline() error = %v, want ErrBaselineMissing", err)
		}
	})

	t.Run("without a mirror", func(t *testing.T) {
		svc := ids.NewService(testutil.NewMockFilesystemManager(), nil, baseline.NewMemoryStore(), nil,
			ids.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err := svc.PushBaseline(); !errors.Is(err, ids.ErrNoMirror) {
			t.Errorf("PushBaseline() error = %v, want ErrNoMirror", err)
		}
		if _, err := svc.PullBaseline("", ids.FormatReadable); !errors.Is(err, ids.ErrNoMirror) {
			t.Errorf("PullBaseline() error = %v, want ErrNoMirror", err)
		}
		if svc.MirrorRequiresPassphrase() {
			t.Error("MirrorRequiresPassphrase() = true without a mirror")
		}
	})
}

type unreachableMirror struct{}

func (unreachableMirror) PutBaseline(string, io.Reader, int64) error { return errors.New("put called") }
func (unreachableMirror) GetBaseline(string, io.Writer) error        { return errors.New("get called") }
func (unreachableMirror) ValidateSetup() error                       { return errors.New("bucket not reachable") }

func TestService_mirrorValidatedBeforeTransfer(t *testing.T) {
	store := baseline.NewMemoryStore()
	if err := store.Persist(sampleSnapshot(), ids.FormatReadable); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	svc := ids.NewService(testutil.NewMockFilesystemManager(), nil, store, nil,
		ids.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	svc.SetMirror("host-1", unreachableMirror{}, nil)

	if err := svc.PushBaseline(); err == nil || !strings.Contains(err.Error(), "bucket not reachable") {
		t.Errorf("PushBaseline() error = %v, want validation failure", err)
	}
	if _, err := svc.PullBaseline("", ids.FormatReadable); err == nil || !strings.Contains(err.Error(), "bucket not reachable") {
		t.Errorf("PullBaseline() error = %v, want validation failure", err)
	}
}
