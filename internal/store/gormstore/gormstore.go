// Package gormstore persists the registry snapshot as one row in a
// relational database through GORM.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linkmap/linkmap/internal/model"
)

const snapshotName = "registry"

// Snapshot is the single-row table holding the serialized registry state.
type Snapshot struct {
	Name string `gorm:"primaryKey;type:varchar(64)"`
	Doc  []byte `gorm:"type:bytea;not null"`
}

type Store struct {
	db *gorm.DB
}

// New runs the schema migration and returns the store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) ([]model.SnapshotEntry, error) {
	var row Snapshot
	err := s.db.WithContext(ctx).Where("name = ?", snapshotName).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var entries []model.SnapshotEntry
	if err := json.Unmarshal(row.Doc, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return entries, nil
}

func (s *Store) Save(ctx context.Context, entries []model.SnapshotEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	row := Snapshot{Name: snapshotName, Doc: raw}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) Erase(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("name = ?", snapshotName).Delete(&Snapshot{}).Error
	if err != nil {
		return fmt.Errorf("erase snapshot: %w", err)
	}
	return nil
}
