package db

import (
	"fmt"
	"log"
	"strconv"
)

// RunMigrateCommand handles the migrate subcommand with the given action and
// arguments. Supported actions: up, down, status, version, force, to,
// baseline, help.
func RunMigrateCommand(dbPath, migrationsDir, action string, args []string) error {
	switch action {
	case "up":
		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		log.Printf("Running migrations up...")
		if err := database.MigrateUp(migrationsDir); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		log.Printf("Migrations completed successfully")
		return nil

	case "down":
		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		log.Printf("Rolling back most recent migration...")
		if err := database.MigrateDown(migrationsDir); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		log.Printf("Rollback completed successfully")
		return nil

	case "status":
		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		status, err := database.GetMigrationStatus(migrationsDir)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		latest, err := GetLatestMigrationVersion(migrationsDir)
		if err != nil {
			return fmt.Errorf("failed to get latest migration version: %w", err)
		}

		fmt.Printf("Migration status:\n")
		fmt.Printf("  Current version: %v\n", status["current_version"])
		fmt.Printf("  Latest version:  %d\n", latest)
		fmt.Printf("  Dirty:           %v\n", status["dirty"])
		fmt.Printf("  Schema table:    %v\n", status["schema_migrations_exists"])
		return nil

	case "version":
		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		version, dirty, err := database.MigrateVersion(migrationsDir)
		if err != nil {
			return fmt.Errorf("failed to get migration version: %w", err)
		}

		if dirty {
			fmt.Printf("Version: %d (dirty)\n", version)
		} else {
			fmt.Printf("Version: %d\n", version)
		}
		return nil

	case "force":
		if len(args) < 1 {
			return fmt.Errorf("force requires a version argument: monitord migrate force <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}

		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		log.Printf("Forcing migration version to %d...", version)
		if err := database.MigrateForce(migrationsDir, version); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		log.Printf("Version forced to %d", version)
		return nil

	case "to":
		if len(args) < 1 {
			return fmt.Errorf("to requires a version argument: monitord migrate to <version>")
		}
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}

		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		log.Printf("Migrating to version %d...", version)
		if err := database.MigrateTo(migrationsDir, uint(version)); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		log.Printf("Migration to version %d completed", version)
		return nil

	case "baseline":
		if len(args) < 1 {
			return fmt.Errorf("baseline requires a version argument: monitord migrate baseline <version>")
		}
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}

		database, err := NewDB(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		log.Printf("Baselining database at version %d...", version)
		if err := database.BaselineAtVersion(uint(version)); err != nil {
			return fmt.Errorf("baseline failed: %w", err)
		}
		return nil

	case "help", "":
		PrintMigrateHelp()
		return nil

	default:
		PrintMigrateHelp()
		return fmt.Errorf("unknown migrate action: %q", action)
	}
}

// PrintMigrateHelp prints usage information for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println("Usage: monitord migrate <action> [args]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  up                  Apply all pending migrations")
	fmt.Println("  down                Roll back the most recent migration")
	fmt.Println("  status              Show current and latest migration versions")
	fmt.Println("  version             Show current migration version")
	fmt.Println("  to <version>        Migrate up or down to a specific version")
	fmt.Println("  force <version>     Force the version marker (recover from dirty state)")
	fmt.Println("  baseline <version>  Mark an existing database as already at a version")
	fmt.Println("  help                Show this help")
	fmt.Println()
	fmt.Println("Flags (set before the migrate subcommand):")
	fmt.Println("  -db <path>          Database file path")
	fmt.Println("  -migrations <dir>   Migrations directory")
}
