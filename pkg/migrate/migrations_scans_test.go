package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/migrate"
)

func TestScansMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_checkpoint_scans.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no checkpoint scans migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS checkpoint_scans",
		"FOREIGN KEY (route_assignment_id) REFERENCES route_assignments(id) ON DELETE CASCADE",
		"CHECK (distance_m >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_checkpoint_scans_assignment_checkpoint",
		"ON checkpoint_scans (route_assignment_id, checkpoint_id)",
		"DROP TABLE IF EXISTS checkpoint_scans",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) < 7 {
		t.Fatalf("expected at least 7 migration files, found %d", len(matches))
	}
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}
