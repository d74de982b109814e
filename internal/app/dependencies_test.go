package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies_Memory(t *testing.T) {
	logger := log.WithField("test", "dependencies")

	cfg := DefaultConfig()
	deps, err := NewDependencies(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer deps.Close()

	if deps.Products == nil {
		t.Error("Products should not be nil")
	}
	if deps.Ledger == nil {
		t.Error("Ledger should not be nil")
	}
	if deps.Outbox == nil {
		t.Error("Outbox should not be nil")
	}
	if deps.Store != nil {
		t.Error("Store should be nil for memory driver")
	}
	if deps.Logger != logger {
		t.Error("Logger should be the same instance as passed")
	}
}

func TestNewDependencies_EmptyDriverFallsBackToMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = ""

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer deps.Close()

	if deps.Products == nil {
		t.Error("Products should not be nil")
	}
	if deps.Logger == nil {
		t.Error("Logger should be initialized even when nil is passed")
	}
}

func TestNewDependencies_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unsupported storage driver")
	}
}

func TestNewDependencies_IndependentInstances(t *testing.T) {
	cfg := DefaultConfig()

	deps1, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deps2, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps1 == deps2 {
		t.Error("NewDependencies should create independent instances")
	}
	if deps1.Products == deps2.Products {
		t.Error("Products instances should be independent")
	}
}
