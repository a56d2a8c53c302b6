package supervisor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/platformeng/dataconnect/pkg/catalog"
	"github.com/platformeng/dataconnect/pkg/config"
	"github.com/platformeng/dataconnect/pkg/creds"
	"github.com/platformeng/dataconnect/pkg/errdefs"
	"github.com/platformeng/dataconnect/pkg/infra"
	"github.com/platformeng/dataconnect/pkg/profile"
	"github.com/platformeng/dataconnect/pkg/sshtunnel"
	"github.com/platformeng/dataconnect/pkg/store"
)

// forwarder is the handle the supervisor keeps for a running tunnel.
type forwarder interface {
	LocalPort() int
	Alive() bool
	Probe(timeout time.Duration) error
	Close() error
}

// dialer opens tunnels; override in tests.
type dialer interface {
	Preflight(ctx context.Context, cfg sshtunnel.Config) error
	Open(ctx context.Context, cfg sshtunnel.Config) (forwarder, error)
}

type sshDialer struct{}

func (sshDialer) Preflight(ctx context.Context, cfg sshtunnel.Config) error {
	return sshtunnel.Preflight(ctx, cfg)
}

func (sshDialer) Open(ctx context.Context, cfg sshtunnel.Config) (forwarder, error) {
	fw, err := sshtunnel.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

// CredentialSource resolves bastion credentials per cloud.
type CredentialSource interface {
	Resolve(cloud string) (creds.Credentials, error)
}

// entry is one registered tunnel. The registry mutex guards all fields.
type entry struct {
	rec     store.TunnelRecord
	fw      forwarder
	strikes int
}

// Options wires a Supervisor's collaborators. History and Cluster are
// optional.
type Options struct {
	Catalog     *catalog.Catalog
	Store       *store.Store
	Credentials CredentialSource
	Profiles    *profile.Generator
	History     *store.History
	Cluster     infra.ClusterManager
	Settings    config.Settings
}

// Supervisor owns the registry of active tunnels and enforces the
// single-tunnel-per-source invariant. All registry mutations happen under one
// mutex; no blocking I/O is performed while it is held.
type Supervisor struct {
	catalog  *catalog.Catalog
	store    *store.Store
	creds    CredentialSource
	profiles *profile.Generator
	history  *store.History
	cluster  infra.ClusterManager
	settings config.Settings
	dial     dialer

	mu      sync.Mutex
	tunnels map[string]*entry
	opening map[string]chan struct{}

	monitorCancel context.CancelFunc
	monitorWG     sync.WaitGroup
}

// New creates a Supervisor. The health monitor is not started; call
// StartMonitor from the process's startup path.
func New(opts Options) *Supervisor {
	return &Supervisor{
		catalog:  opts.Catalog,
		store:    opts.Store,
		creds:    opts.Credentials,
		profiles: opts.Profiles,
		history:  opts.History,
		cluster:  opts.Cluster,
		settings: opts.Settings,
		dial:     sshDialer{},
		tunnels:  make(map[string]*entry),
		opening:  make(map[string]chan struct{}),
	}
}

// Enable makes the source reachable: for bastion-fronted sources it opens a
// tunnel, registers and persists it, and writes the connection profile; for
// credential-only cloud services it writes the profile directly and returns a
// nil record. Enabling an already-enabled source with a live tunnel is
// idempotent and returns the existing record.
func (s *Supervisor) Enable(ctx context.Context, sourceID string) (*store.TunnelRecord, error) {
	src, ok := s.catalog.Lookup(sourceID)
	if !ok {
		return nil, &errdefs.UnknownSourceError{SourceID: sourceID, Available: s.catalog.IDs()}
	}

	if !src.RequiresTunnel() {
		return nil, s.enableDirect(src)
	}

	ch, rec, err := s.claim(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	newRec, fw, openErr := s.openTunnel(ctx, src)

	s.mu.Lock()
	delete(s.opening, sourceID)
	close(ch)
	if openErr != nil {
		s.mu.Unlock()
		return nil, openErr
	}
	s.tunnels[sourceID] = &entry{rec: newRec, fw: fw}
	s.mu.Unlock()

	if s.history != nil {
		if _, err := s.history.RecordEstablished(newRec); err != nil {
			log.Warn().Str("source", sourceID).Err(err).Msg("could not record session history")
		}
	}
	return &newRec, nil
}

// claim either returns the live record for sourceID (idempotent path), or
// registers this caller as the one opening the tunnel and returns the channel
// to close when done. Stale entries (forwarding task silently died) are
// dropped so the tunnel is transparently re-established. When another caller
// is already opening, claim waits for it and then re-checks.
func (s *Supervisor) claim(ctx context.Context, sourceID string) (chan struct{}, *store.TunnelRecord, error) {
	for {
		s.mu.Lock()
		if e, ok := s.tunnels[sourceID]; ok {
			if e.fw.Alive() {
				rec := e.rec
				s.mu.Unlock()
				log.Debug().Str("source", sourceID).Int("local_port", rec.LocalPort).Msg("already connected")
				return nil, &rec, nil
			}
			delete(s.tunnels, sourceID)
			stale := e
			s.mu.Unlock()
			log.Warn().Str("source", sourceID).Msg("previous tunnel died, re-establishing")
			stale.fw.Close()
			continue
		}
		if ch, inflight := s.opening[sourceID]; inflight {
			s.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
			continue
		}
		ch := make(chan struct{})
		s.opening[sourceID] = ch
		s.mu.Unlock()
		return ch, nil, nil
	}
}

// openTunnel performs the blocking establishment sequence outside the
// registry lock. On any failure no state is left behind: partially opened
// resources are torn down and nothing stays persisted.
func (s *Supervisor) openTunnel(ctx context.Context, src catalog.Source) (store.TunnelRecord, forwarder, error) {
	cred, err := s.creds.Resolve(src.Cloud)
	if err != nil {
		return store.TunnelRecord{}, nil, err
	}

	cfg := sshtunnel.Config{
		SourceID:         src.ID,
		BastionHost:      src.BastionHost,
		BastionPort:      s.settings.BastionSSHPort,
		Username:         cred.Username,
		Signer:           cred.Signer,
		TargetHost:       src.TargetHost,
		TargetPort:       src.TargetPort,
		LocalPort:        src.DefaultLocalPort,
		PortScanAttempts: s.settings.PortScanAttempts,
		DialTimeout:      s.settings.DialTimeout,
	}

	if err := s.preflight(ctx, cfg); err != nil {
		return store.TunnelRecord{}, nil, &errdefs.BastionUnreachableError{
			SourceID:    src.ID,
			BastionHost: src.BastionHost,
			Err:         err,
		}
	}

	fw, err := s.dial.Open(ctx, cfg)
	if err != nil {
		if errors.Is(err, sshtunnel.ErrNoFreePort) {
			return store.TunnelRecord{}, nil, &errdefs.NoPortAvailableError{
				SourceID: src.ID,
				BasePort: src.DefaultLocalPort,
				Attempts: s.settings.PortScanAttempts,
			}
		}
		return store.TunnelRecord{}, nil, &errdefs.TunnelEstablishError{SourceID: src.ID, Stage: "open", Err: err}
	}

	rec := store.TunnelRecord{
		SourceID:    src.ID,
		SessionID:   uuid.NewString(),
		BastionHost: src.BastionHost,
		TargetHost:  src.TargetHost,
		TargetPort:  src.TargetPort,
		LocalPort:   fw.LocalPort(),
		CreatedAt:   time.Now().UTC(),
		Status:      store.StatusActive,
	}
	if err := s.store.SaveTunnelRecord(rec); err != nil {
		fw.Close()
		return store.TunnelRecord{}, nil, &errdefs.TunnelEstablishError{SourceID: src.ID, Stage: "persist", Err: err}
	}
	if _, err := s.profiles.GenerateTunneled(src, rec); err != nil {
		fw.Close()
		s.store.DeleteTunnelRecord(src.ID)
		return store.TunnelRecord{}, nil, &errdefs.TunnelEstablishError{SourceID: src.ID, Stage: "profile", Err: err}
	}
	return rec, fw, nil
}

// preflight checks bastion reachability, with bounded retries when
// configured. The default is a single attempt.
func (s *Supervisor) preflight(ctx context.Context, cfg sshtunnel.Config) error {
	attempts := s.settings.PreflightAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = s.dial.Preflight(ctx, cfg); err == nil {
			return nil
		}
		if i+1 < attempts {
			log.Debug().Str("source", cfg.SourceID).Err(err).Msg("preflight failed, retrying")
			select {
			case <-time.After(s.settings.PreflightBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// enableDirect writes the profile for a credential-only cloud service. When a
// cluster manager is configured, an unreachable workload cluster blocks
// profile generation.
func (s *Supervisor) enableDirect(src catalog.Source) error {
	if s.cluster != nil && !s.cluster.Reachable() {
		return errors.Errorf("source %s: workload cluster is not reachable: start the cluster before enabling cloud-service sources", src.ID)
	}
	_, err := s.profiles.GenerateDirect(src)
	return err
}

// Disable tears down the source's tunnel (if any) and removes its persisted
// descriptor and profile. Disabling a source that is not enabled is a
// successful no-op.
func (s *Supervisor) Disable(ctx context.Context, sourceID string) error {
	if _, ok := s.catalog.Lookup(sourceID); !ok {
		return &errdefs.UnknownSourceError{SourceID: sourceID, Available: s.catalog.IDs()}
	}

	s.mu.Lock()
	e := s.tunnels[sourceID]
	delete(s.tunnels, sourceID)
	s.mu.Unlock()

	if e != nil {
		if err := e.fw.Close(); err != nil {
			// Best effort: a leaked forwarding task is preferable to a
			// stuck registry entry.
			log.Warn().Str("source", sourceID).Err(err).Msg("could not stop forwarding task")
		}
		if s.history != nil {
			if err := s.history.RecordClosed(e.rec.SessionID); err != nil {
				log.Warn().Str("source", sourceID).Err(err).Msg("could not record session close")
			}
		}
	}

	if err := s.store.DeleteTunnelRecord(sourceID); err != nil {
		log.Warn().Str("source", sourceID).Err(err).Msg("could not delete tunnel descriptor")
	}
	if err := s.profiles.Delete(sourceID); err != nil {
		log.Warn().Str("source", sourceID).Err(err).Msg("could not delete connection profile")
	}
	log.Info().Str("source", sourceID).Msg("source disabled")
	return nil
}

// IsActive reports whether the source is currently enabled: a live forwarding
// task for tunnel-backed sources, an existing profile for credential-only
// ones.
func (s *Supervisor) IsActive(sourceID string) bool {
	src, ok := s.catalog.Lookup(sourceID)
	if !ok {
		return false
	}
	if !src.RequiresTunnel() {
		return s.store.ProfileExists(sourceID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tunnels[sourceID]
	return ok && e.fw.Alive()
}

// ListActive returns a snapshot of the active tunnel records, sorted by
// source identifier.
func (s *Supervisor) ListActive() []store.TunnelRecord {
	s.mu.Lock()
	records := make([]store.TunnelRecord, 0, len(s.tunnels))
	for _, e := range s.tunnels {
		records = append(records, e.rec)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].SourceID < records[j].SourceID })
	return records
}

// Restore re-establishes tunnels for descriptors persisted by a previous
// process. Forwarding tasks do not survive a restart, so every record is
// re-validated by opening a fresh tunnel; descriptors that cannot be
// re-established are removed.
func (s *Supervisor) Restore(ctx context.Context) {
	records, err := s.store.ListTunnelRecords()
	if err != nil {
		log.Warn().Err(err).Msg("could not list persisted tunnel descriptors")
		return
	}
	for _, rec := range records {
		if s.IsActive(rec.SourceID) {
			continue
		}
		log.Info().Str("source", rec.SourceID).Msg("re-establishing persisted tunnel")
		if _, err := s.Enable(ctx, rec.SourceID); err != nil {
			log.Warn().Str("source", rec.SourceID).Err(err).Msg("could not re-establish tunnel, removing stale state")
			s.store.DeleteTunnelRecord(rec.SourceID)
			s.profiles.Delete(rec.SourceID)
		}
	}
}

// Close stops the health monitor and closes every tunnel. Persisted
// descriptors are kept so a restarted process knows what was enabled.
func (s *Supervisor) Close() {
	s.StopMonitor()

	s.mu.Lock()
	all := s.tunnels
	s.tunnels = make(map[string]*entry)
	s.mu.Unlock()

	for id, e := range all {
		if err := e.fw.Close(); err != nil {
			log.Warn().Str("source", id).Err(err).Msg("error closing tunnel")
		}
		if s.history != nil {
			s.history.RecordClosed(e.rec.SessionID)
		}
	}
	if len(all) > 0 {
		log.Info().Int("count", len(all)).Msg("closed all tunnels")
	}
}
