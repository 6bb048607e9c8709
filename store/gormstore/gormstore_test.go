package gormstore

import (
	"context"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/database"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/store"
	"github.com/ocobra/meeting-minutes-sub000/store/storetest"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Path:        database.MemoryPath,
		AutoMigrate: true,
		LogLevel:    "silent",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newStore(t).(*Store)
	if err := s.Migrate(); err != nil {
		t.Errorf("second migration failed: %v", err)
	}
}
