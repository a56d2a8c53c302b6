package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestSweepReapsAfterTwoStrikes(t *testing.T) {
	s, fd, st := newTestSupervisor(t)

	if _, err := s.Enable(context.Background(), "aws-postgres"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	fw := fd.lastForwarder()
	fw.setProbeErr(errors.New("bastion not responding"))

	// One failed probe is not enough to declare the tunnel dead.
	s.sweep()
	if !s.IsActive("aws-postgres") {
		t.Fatal("tunnel removed after a single failed probe")
	}

	s.sweep()
	if s.IsActive("aws-postgres") {
		t.Error("tunnel still registered after two failed probes")
	}
	if !fw.isClosed() {
		t.Error("forwarder not closed on removal")
	}
	if _, ok, _ := st.LoadTunnelRecord("aws-postgres"); ok {
		t.Error("descriptor not removed with the dead tunnel")
	}
	if st.ProfileExists("aws-postgres") {
		t.Error("profile not removed with the dead tunnel")
	}
}

func TestSweepRecoveryResetsStrikes(t *testing.T) {
	s, fd, _ := newTestSupervisor(t)

	if _, err := s.Enable(context.Background(), "aws-postgres"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	fw := fd.lastForwarder()

	fw.setProbeErr(errors.New("transient"))
	s.sweep()
	fw.setProbeErr(nil)
	s.sweep()
	fw.setProbeErr(errors.New("transient"))
	s.sweep()

	if !s.IsActive("aws-postgres") {
		t.Error("tunnel removed although probes never failed twice in a row")
	}
}

func TestSweepReapsDeadTaskImmediately(t *testing.T) {
	s, fd, st := newTestSupervisor(t)

	if _, err := s.Enable(context.Background(), "aws-postgres"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	fw := fd.lastForwarder()
	fw.mu.Lock()
	fw.dead = true
	fw.mu.Unlock()

	s.sweep()
	if s.IsActive("aws-postgres") {
		t.Error("tunnel with dead forwarding task survived the sweep")
	}
	if _, ok, _ := st.LoadTunnelRecord("aws-postgres"); ok {
		t.Error("descriptor not removed")
	}
}

func TestSweepIgnoresReplacedTunnel(t *testing.T) {
	s, fd, st := newTestSupervisor(t)
	ctx := context.Background()

	if _, err := s.Enable(ctx, "aws-postgres"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	stale := fd.lastForwarder()
	stale.setProbeErr(errors.New("bastion not responding"))
	s.sweep()

	// The tunnel is replaced between two failing sweeps. The fresh session
	// must not inherit the stale tunnel's strike.
	stale.mu.Lock()
	stale.dead = true
	stale.mu.Unlock()
	if _, err := s.Enable(ctx, "aws-postgres"); err != nil {
		t.Fatalf("re-Enable: %v", err)
	}

	s.sweep()
	if !s.IsActive("aws-postgres") {
		t.Error("freshly replaced tunnel was reaped by a stale verdict")
	}
	if _, ok, _ := st.LoadTunnelRecord("aws-postgres"); !ok {
		t.Error("descriptor for the fresh tunnel is gone")
	}
}

func TestMonitorLifecycle(t *testing.T) {
	s, fd, _ := newTestSupervisor(t)

	if _, err := s.Enable(context.Background(), "aws-postgres"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	fw := fd.lastForwarder()
	fw.setProbeErr(errors.New("bastion not responding"))

	s.StartMonitor(context.Background())
	s.StartMonitor(context.Background()) // second call is a no-op

	deadline := time.Now().Add(2 * time.Second)
	for s.IsActive("aws-postgres") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.IsActive("aws-postgres") {
		t.Fatal("monitor never reaped the failing tunnel")
	}

	s.StopMonitor()
	s.StopMonitor() // idempotent
}
