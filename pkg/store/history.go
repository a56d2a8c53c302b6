package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Session is one row of tunnel session history: a tunnel established and
// (eventually) closed. History is an audit trail, separate from the live
// descriptors, and survives Disable.
type Session struct {
	ID            string `gorm:"primaryKey"`
	SourceID      string `gorm:"index"`
	BastionHost   string
	LocalPort     int
	Metadata      datatypes.JSON
	EstablishedAt time.Time
	ClosedAt      *time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// History records tunnel sessions in a local sqlite database.
type History struct {
	db *gorm.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, err
	}
	return &History{db: db}, nil
}

// RecordEstablished inserts a session row for a freshly opened tunnel.
func (h *History) RecordEstablished(rec TunnelRecord) (string, error) {
	meta, _ := json.Marshal(map[string]interface{}{
		"target_host": rec.TargetHost,
		"target_port": rec.TargetPort,
	})
	id := rec.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	session := &Session{
		ID:            id,
		SourceID:      rec.SourceID,
		BastionHost:   rec.BastionHost,
		LocalPort:     rec.LocalPort,
		Metadata:      meta,
		EstablishedAt: rec.CreatedAt,
		Active:        true,
	}
	if result := h.db.Create(session); result.Error != nil {
		return "", result.Error
	}
	return id, nil
}

// RecordClosed marks a session inactive with its close timestamp.
func (h *History) RecordClosed(sessionID string) error {
	now := time.Now().UTC()
	result := h.db.Model(&Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"active": false, "closed_at": now})
	return result.Error
}

// ActiveSessions returns sessions not yet marked closed.
func (h *History) ActiveSessions() ([]Session, error) {
	var sessions []Session
	result := h.db.Where("active = ?", true).Order("established_at desc").Find(&sessions)
	return sessions, result.Error
}

// SourceSessions returns all sessions for one source, newest first.
func (h *History) SourceSessions(sourceID string) ([]Session, error) {
	var sessions []Session
	result := h.db.Where("source_id = ?", sourceID).Order("established_at desc").Find(&sessions)
	return sessions, result.Error
}
