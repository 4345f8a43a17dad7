package databricks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile_ValidFile_PopulatesSettings(t *testing.T) {
	// Given
	dir := t.TempDir()
	path := filepath.Join(dir, ".databrickscfg")
	content := `[analytics]
host = https://dbc-1234.cloud.databricks.com
token = dapi-token
http_path = /sql/1.0/warehouses/abc
catalog = retail
schema = promo
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// When
	settings, err := LoadProfile(path, "analytics")

	// Then
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := "token:dapi-token@dbc-1234.cloud.databricks.com:443/sql/1.0/warehouses/abc?catalog=retail&schema=promo"
	if got := settings.DSN(); got != want {
		t.Errorf("expected DSN=%s, got %s", want, got)
	}
}

func TestLoadProfile_MissingProfile_ReturnsError(t *testing.T) {
	// Given
	dir := t.TempDir()
	path := filepath.Join(dir, ".databrickscfg")
	if err := os.WriteFile(path, []byte("[other]\nhost = h\n"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// When
	_, err := LoadProfile(path, "analytics")

	// Then
	if err == nil {
		t.Error("expected error for missing profile, got nil")
	}
}

func TestSettings_DSN_DefaultHttpPath(t *testing.T) {
	s := Settings{Host: "example.com", Token: "tok"}
	want := "token:tok@example.com:443/sql/1.0/warehouses/warehouse"
	if got := s.DSN(); got != want {
		t.Errorf("expected DSN=%s, got %s", want, got)
	}
}

func TestNewDB_RequiresCredentials(t *testing.T) {
	if _, err := NewDB(Settings{Host: "example.com"}); err == nil {
		t.Error("expected error without token, got nil")
	}
}
