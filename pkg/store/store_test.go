package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "tunnels"), filepath.Join(dir, "profiles"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func testRecord() TunnelRecord {
	return TunnelRecord{
		SourceID:    "aws-postgres",
		SessionID:   "11111111-2222-3333-4444-555555555555",
		BastionHost: "bastion-aws.platform.internal",
		TargetHost:  "postgres-shared.platform.internal",
		TargetPort:  5432,
		LocalPort:   5432,
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:      StatusActive,
	}
}

func TestTunnelRecordRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec := testRecord()

	if err := s.SaveTunnelRecord(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.LoadTunnelRecord("aws-postgres")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("record not found after save")
	}
	if got != rec {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestLoadMissingRecord(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.LoadTunnelRecord("nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Error("expected no record")
	}
}

func TestDeleteRecordIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveTunnelRecord(testRecord()); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTunnelRecord("aws-postgres"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTunnelRecord("aws-postgres"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	if _, ok, _ := s.LoadTunnelRecord("aws-postgres"); ok {
		t.Error("record still present after delete")
	}
}

func TestListTunnelRecords(t *testing.T) {
	s := newTestStore(t)
	rec1 := testRecord()
	rec2 := testRecord()
	rec2.SourceID = "aws-mysql"
	rec2.LocalPort = 3306

	for _, rec := range []TunnelRecord{rec1, rec2} {
		if err := s.SaveTunnelRecord(rec); err != nil {
			t.Fatal(err)
		}
	}
	records, err := s.ListTunnelRecords()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestProfileLifecycle(t *testing.T) {
	s := newTestStore(t)
	if s.ProfileExists("aws-postgres") {
		t.Error("profile should not exist yet")
	}
	if err := s.SaveProfile("aws-postgres", []byte("source_id: aws-postgres\n")); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if !s.ProfileExists("aws-postgres") {
		t.Error("profile should exist")
	}
	data, ok, err := s.LoadProfile("aws-postgres")
	if err != nil || !ok {
		t.Fatalf("load profile: ok=%v err=%v", ok, err)
	}
	if string(data) != "source_id: aws-postgres\n" {
		t.Errorf("unexpected profile content %q", data)
	}
	if err := s.DeleteProfile("aws-postgres"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if err := s.DeleteProfile("aws-postgres"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.SaveProfile("aws-postgres", []byte("regenerated\n")); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(s.profilesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the profile file, found %v", names)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}

	id, err := h.RecordEstablished(testRecord())
	if err != nil {
		t.Fatalf("record established: %v", err)
	}
	active, err := h.ActiveSessions()
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if len(active) != 1 || active[0].SourceID != "aws-postgres" {
		t.Fatalf("unexpected active sessions %+v", active)
	}

	if err := h.RecordClosed(id); err != nil {
		t.Fatalf("record closed: %v", err)
	}
	active, err = h.ActiveSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active sessions, got %d", len(active))
	}

	all, err := h.SourceSessions("aws-postgres")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ClosedAt == nil {
		t.Errorf("expected one closed session, got %+v", all)
	}
}
