package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	vaultDir   = flag.String("vault-dir", "", "Vault directory containing vault.sqlite3")
	dryRun     = flag.Bool("dry-run", false, "Show what would change without making changes")
	backupPath = flag.String("backup", "", "Path to back up vault.sqlite3 before migrating (default: <vault-dir>/vault.sqlite3.backup)")
	inspect    = flag.Bool("inspect", false, "Print row counts per table and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *vaultDir == "" {
		log.Fatal("--vault-dir is required")
	}
	dbPath := filepath.Join(*vaultDir, "vault.sqlite3")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("vault database not found at %s", dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("open %s: %v", dbPath, err)
	}
	defer db.Close()

	if *inspect {
		if err := inspectVault(db); err != nil {
			log.Fatalf("inspect: %v", err)
		}
		return
	}

	version, err := schemaVersion(db)
	if err != nil {
		log.Fatalf("read schema version: %v", err)
	}
	log.Printf("vault: %s", dbPath)
	log.Printf("schema_meta version: %d (current build expects %d)", version, currentSchemaVersion)

	if version >= currentSchemaVersion {
		log.Println("nothing to migrate")
		return
	}

	if !*dryRun {
		backup := *backupPath
		if backup == "" {
			backup = dbPath + ".backup"
		}
		log.Printf("backing up to %s", backup)
		if err := copyFile(dbPath, backup); err != nil {
			log.Fatalf("backup failed: %v", err)
		}
	}

	if err := migrate(db, version, *dryRun); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if *dryRun {
		log.Println("dry run complete, no changes made")
	} else {
		log.Println("migration complete")
	}
}

const currentSchemaVersion = 1

func schemaVersion(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_meta'`).Scan(&count); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	var v int
	err := db.QueryRow(`SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

// migrate applies any schema step between the vault's recorded version
// and currentSchemaVersion. There is only ever one shipped schema today
// (pkg/store/migrations.go's migration001), so this is a placeholder
// for future steps rather than a real multi-version ladder yet.
func migrate(db *sql.DB, from int, dryRun bool) error {
	if from >= currentSchemaVersion {
		return nil
	}
	if dryRun {
		log.Printf("[dry run] would record schema_meta version %d", currentSchemaVersion)
		return nil
	}
	_, err := db.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, currentSchemaVersion)
	return err
}

func inspectVault(db *sql.DB) error {
	tables := []string{
		"spaces", "notes", "tasks", "projects", "tags", "time_entries",
		"knowledge_cards", "review_logs", "domain_entities", "llm_cache",
		"devices", "device_trust", "sync_history", "sync_conflicts",
		"device_secrets", "sync_tasks",
	}
	for _, t := range tables {
		var count int
		err := db.QueryRow(fmt.Sprintf("SELECT count(*) FROM %s", t)).Scan(&count)
		if err != nil {
			fmt.Printf("  %-20s (not present)\n", t)
			continue
		}
		fmt.Printf("  %-20s %d rows\n", t, count)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
