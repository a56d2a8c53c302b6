package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartMonitor launches the background health monitor. It wakes every
// MonitorInterval, probes each registered tunnel, and reaps tunnels that fail
// liveness on two consecutive cycles. Calling StartMonitor twice is a no-op.
func (s *Supervisor) StartMonitor(ctx context.Context) {
	s.mu.Lock()
	if s.monitorCancel != nil {
		s.mu.Unlock()
		return
	}
	mctx, cancel := context.WithCancel(ctx)
	s.monitorCancel = cancel
	s.mu.Unlock()

	s.monitorWG.Add(1)
	go s.monitorLoop(mctx)
	log.Debug().Dur("interval", s.settings.MonitorInterval).Msg("health monitor started")
}

// StopMonitor cancels the monitor goroutine and waits for it to exit. Safe to
// call when the monitor was never started.
func (s *Supervisor) StopMonitor() {
	s.mu.Lock()
	cancel := s.monitorCancel
	s.monitorCancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.monitorWG.Wait()
}

func (s *Supervisor) monitorLoop(ctx context.Context) {
	defer s.monitorWG.Done()
	ticker := time.NewTicker(s.settings.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("health monitor stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep probes every registered tunnel once. Probes run outside the registry
// lock; removals re-verify the session identifier under the lock so a tunnel
// re-established mid-sweep is never reaped by a stale verdict.
func (s *Supervisor) sweep() {
	s.mu.Lock()
	snapshot := make([]*entry, 0, len(s.tunnels))
	for _, e := range s.tunnels {
		snapshot = append(snapshot, e)
	}
	s.mu.Unlock()

	for _, e := range snapshot {
		id := e.rec.SourceID
		session := e.rec.SessionID

		var probeErr error
		taskDead := !e.fw.Alive()
		if !taskDead {
			probeErr = e.fw.Probe(s.settings.LivenessTimeout)
		}

		if !taskDead && probeErr == nil {
			s.mu.Lock()
			if cur, ok := s.tunnels[id]; ok && cur.rec.SessionID == session {
				cur.strikes = 0
			}
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		cur, ok := s.tunnels[id]
		if !ok || cur.rec.SessionID != session {
			// Disabled or re-established since the snapshot.
			s.mu.Unlock()
			continue
		}
		cur.strikes++
		strikes := cur.strikes
		reap := taskDead || strikes >= s.settings.LivenessStrikes
		if reap {
			delete(s.tunnels, id)
		}
		s.mu.Unlock()

		if !reap {
			// One failed probe may be transient load on the bastion.
			log.Debug().
				Str("source", id).
				Int("strikes", strikes).
				Err(probeErr).
				Msg("liveness probe failed, re-checking next cycle")
			continue
		}

		log.Warn().
			Str("source", id).
			Str("session", session).
			Bool("task_dead", taskDead).
			Err(probeErr).
			Msg("tunnel failed liveness, removing")
		e.fw.Close()
		if err := s.store.DeleteTunnelRecord(id); err != nil {
			log.Warn().Str("source", id).Err(err).Msg("could not delete tunnel descriptor")
		}
		if err := s.profiles.Delete(id); err != nil {
			log.Warn().Str("source", id).Err(err).Msg("could not delete connection profile")
		}
		if s.history != nil {
			if err := s.history.RecordClosed(session); err != nil {
				log.Warn().Str("source", id).Err(err).Msg("could not record session close")
			}
		}
	}
}
