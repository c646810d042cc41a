package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixelgrove/gamecrate-backend/pkg/migrate"
)

func TestDigitalCodesMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_digital_codes_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no digital codes migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS digital_codes",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_digital_codes_code",
		"remaining_balance NUMERIC(12,2) NOT NULL CHECK (remaining_balance >= 0)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationFilenamesValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
