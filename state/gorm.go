package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// checkpoint is one saved Document.
type checkpoint struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	SavedAt   time.Time      `gorm:"column:saved_at;index"`
	Iteration int            `gorm:"column:iteration"`
	Cash      float64        `gorm:"column:cash"`
	Open      int            `gorm:"column:open_positions"`
	Document  datatypes.JSON `gorm:"column:document;type:TEXT"`
}

func (checkpoint) TableName() string { return "ledger_states" }

// GormStore appends every Save as a checkpoint row and loads the newest.
type GormStore struct {
	db   *gorm.DB
	keep int
}

func NewGormStore(path string, keep int) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("state: sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("state: mkdir %s: %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&checkpoint{}); err != nil {
		return nil, fmt.Errorf("state: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &GormStore{db: db, keep: keep}, nil
}

func (s *GormStore) Save(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	row := checkpoint{
		SavedAt:   doc.SavedAt.UTC(),
		Iteration: doc.Iteration,
		Cash:      doc.Ledger.Cash,
		Open:      len(doc.Ledger.OpenPositions),
		Document:  datatypes.JSON(data),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	if s.keep > 0 {
		if _, err := s.Prune(ctx, s.keep); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) Load(ctx context.Context) (Document, bool, error) {
	var row checkpoint
	err := s.db.WithContext(ctx).Order("id DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("state: load: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(row.Document, &doc); err != nil {
		return Document{}, false, fmt.Errorf("state: decode checkpoint %d: %w", row.ID, err)
	}
	return doc, true, nil
}

// Count returns how many checkpoints are stored.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&checkpoint{}).Count(&n).Error
	return n, err
}

// Prune deletes all but the newest keep checkpoints and returns how many
// rows went.
func (s *GormStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var cutoff []uint
	err := s.db.WithContext(ctx).Model(&checkpoint{}).
		Order("id DESC").Offset(keep).Limit(1).Pluck("id", &cutoff).Error
	if err != nil {
		return 0, fmt.Errorf("state: prune: %w", err)
	}
	if len(cutoff) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id <= ?", cutoff[0]).Delete(&checkpoint{})
	if res.Error != nil {
		return 0, fmt.Errorf("state: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes every checkpoint.
func (s *GormStore) Delete(ctx context.Context) error {
	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&checkpoint{}).Error
	if err != nil {
		return fmt.Errorf("state: delete: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
