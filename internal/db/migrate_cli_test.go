package db

import (
	"os"
	"testing"
)

func TestRunMigrateCommand_UpStatusVersion(t *testing.T) {
	dbPath := t.Name() + ".db"
	_ = os.Remove(dbPath)
	defer os.Remove(dbPath)

	migrationsDir := setupTestMigrations(t)

	if err := RunMigrateCommand(dbPath, migrationsDir, "up", nil); err != nil {
		t.Fatalf("migrate up failed: %v", err)
	}
	if err := RunMigrateCommand(dbPath, migrationsDir, "status", nil); err != nil {
		t.Fatalf("migrate status failed: %v", err)
	}
	if err := RunMigrateCommand(dbPath, migrationsDir, "version", nil); err != nil {
		t.Fatalf("migrate version failed: %v", err)
	}
	if err := RunMigrateCommand(dbPath, migrationsDir, "down", nil); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
}

func TestRunMigrateCommand_ToAndForce(t *testing.T) {
	dbPath := t.Name() + ".db"
	_ = os.Remove(dbPath)
	defer os.Remove(dbPath)

	migrationsDir := setupTestMigrations(t)

	if err := RunMigrateCommand(dbPath, migrationsDir, "to", []string{"1"}); err != nil {
		t.Fatalf("migrate to failed: %v", err)
	}
	if err := RunMigrateCommand(dbPath, migrationsDir, "force", []string{"2"}); err != nil {
		t.Fatalf("migrate force failed: %v", err)
	}
}

func TestRunMigrateCommand_MissingVersionArgs(t *testing.T) {
	dbPath := t.Name() + ".db"
	_ = os.Remove(dbPath)
	defer os.Remove(dbPath)

	migrationsDir := setupTestMigrations(t)

	for _, action := range []string{"force", "to", "baseline"} {
		if err := RunMigrateCommand(dbPath, migrationsDir, action, nil); err == nil {
			t.Errorf("expected error for %s without version argument", action)
		}
	}
}

func TestRunMigrateCommand_UnknownAction(t *testing.T) {
	dbPath := t.Name() + ".db"
	_ = os.Remove(dbPath)
	defer os.Remove(dbPath)

	migrationsDir := setupTestMigrations(t)

	if err := RunMigrateCommand(dbPath, migrationsDir, "sideways", nil); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestRunMigrateCommand_Help(t *testing.T) {
	if err := RunMigrateCommand("unused.db", "unused", "help", nil); err != nil {
		t.Errorf("help should not fail: %v", err)
	}
}
