package ids

import (
	"context"
	"errors"
	"fmt"
)

// Service is the orchestration layer that coordinates fingerprinting, port
// enumeration, baseline storage and comparison to perform the high-level
// operations needed by the CLI and the HTTP API.
type Service struct {
	fingerprinter *Fingerprinter
	ports         PortEnumerator
	store         BaselineStore
	reports       ReportDatabase
	logger        Logger
	clock         Clock
	idgen         IDGenerator

	hostID    string
	mirror    Mirror
	encryptor Encryptor
}

// NewService creates a Service with the provided dependencies.
// ports may be nil, in which case snapshots carry an empty PortSet.
// reports may be nil, in which case check results are not recorded.
func NewService(fsmgr FilesystemManager, ports PortEnumerator, store BaselineStore, reports ReportDatabase, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		fingerprinter: NewFingerprinter(fsmgr, logger),
		ports:         ports,
		store:         store,
		reports:       reports,
		logger:        logger,
		clock:         clock,
		idgen:         idgen,
	}
}

// SetMirror enables pushing and pulling the baseline to mirror under hostID.
// encryptor may be nil to store the baseline in plaintext.
func (s *Service) SetMirror(hostID string, mirror Mirror, encryptor Encryptor) {
	s.hostID = hostID
	s.mirror = mirror
	s.encryptor = encryptor
}

// Snapshot fingerprints paths and the host's listening ports.
// The build aborts if any path cannot be fingerprinted: the returned error
// joins one *PathError per unreadable path, and no Snapshot is produced.
func (s *Service) Snapshot(ctx context.Context, paths []string) (*Snapshot, error) {
	if len(paths) == 0 {
		return nil, ErrConfigurationMissing
	}

	buildTime := FormatTime(s.clock.Now())
	s.logger.Debug("building snapshot", "files", len(paths))

	files := make(map[string]*FileRecord, len(paths))
	seen := make(map[string]struct{}, len(paths))
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("building snapshot: %w", err)
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		record, err := s.fingerprinter.Fingerprint(path)
		if err != nil {
			s.logger.Error("fingerprinting failed", "path", path, "op", "build", "error", err)
			errs = append(errs, err)
			continue
		}
		files[path] = record
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("building snapshot: %w", errors.Join(errs...))
	}

	ports := NewPortSet()
	if s.ports != nil {
		ports = s.ports.ListeningPorts(ctx)
		if ports.Failed() {
			s.logger.Warn("listening ports recorded as unavailable", "op", "build")
		}
	}

	return &Snapshot{
		BuildTime:      buildTime,
		Files:          files,
		ListeningPorts: ports,
	}, nil
}

// Build produces a new Snapshot of paths and persists it as the baseline.
// When a mirror is configured the new baseline is pushed to it as well; a
// push failure is returned after the local baseline has been written.
func (s *Service) Build(ctx context.Context, paths []string, format Format) (*Snapshot, error) {
	snapshot, err := s.Snapshot(ctx, paths)
	if err != nil {
		return nil, err
	}

	if err := s.store.Persist(snapshot, format); err != nil {
		return nil, fmt.Errorf("persisting baseline: %w", err)
	}
	s.logger.Info("baseline built",
		"location", s.store.Location(),
		"files", len(snapshot.Files),
		"format", format.String(),
		"build_time", snapshot.BuildTime)

	if s.mirror != nil {
		if err := s.pushSnapshot(snapshot); err != nil {
			s.logger.Error("mirror push failed", "op", "build", "error", err)
			return snapshot, fmt.Errorf("pushing baseline to mirror: %w", err)
		}
	}

	return snapshot, nil
}

// Check re-measures every path of the baseline and compares the result with
// it. A path that can no longer be fingerprinted is reported as divergent
// with an absent current record. The report is recorded when a report
// database is configured.
func (s *Service) Check(ctx context.Context) (*Report, error) {
	baseline, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading baseline: %w", err)
	}

	current := make(map[string]*FileRecord, len(baseline.Files))
	failures := make(map[string]error)
	for _, path := range baseline.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("checking files: %w", err)
		}
		record, err := s.fingerprinter.Fingerprint(path)
		if err != nil {
			s.logger.Error("fingerprinting failed", "path", path, "op", "check", "error", err)
			failures[path] = err
			continue
		}
		current[path] = record
	}

	changes := Compare(baseline.Files, current)
	for path, err := range failures {
		if change, ok := changes[path]; ok {
			change.Error = err.Error()
		}
	}

	report := NewReport(s.idgen.New(), s.clock.Now(), baseline.BuildTime, changes)
	for _, path := range changes.Paths() {
		change := changes[path]
		if change.Absent() {
			s.logger.Warn("monitored file unreadable", "path", path, "error", change.Error)
			continue
		}
		s.logger.Warn("monitored file diverged", "path", path, "fields", change.Expected.DiffFields(change.Current))
	}
	s.logger.Info("check complete", "state", report.State, "files", len(baseline.Files), "divergent", len(changes))

	if s.reports != nil {
		if err := s.reports.CreateReport(report); err != nil {
			return report, fmt.Errorf("recording report: %w", err)
		}
	}

	return report, nil
}

// Baseline returns the persisted baseline.
func (s *Service) Baseline() (*Snapshot, error) {
	return s.store.Load()
}
