package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "present.env")
	if err := os.WriteFile(existing, []byte("PORT=8000\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", existing, false},
		{"missing file", filepath.Join(dir, "absent.env"), true},
		{"empty path", "", true},
		{"directory not file", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFileExists(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckFileExists(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestCheckDirWritable(t *testing.T) {
	dir := t.TempDir()

	if err := CheckDirWritable(dir); err != nil {
		t.Errorf("CheckDirWritable(existing) error = %v", err)
	}

	nested := filepath.Join(dir, "a", "b", "outputs")
	if err := CheckDirWritable(nested); err != nil {
		t.Errorf("CheckDirWritable(nested) error = %v", err)
	}
	if info, err := os.Stat(nested); err != nil || !info.IsDir() {
		t.Errorf("nested directory was not created: %v", err)
	}

	if err := CheckDirWritable(""); err == nil {
		t.Error("CheckDirWritable(\"\") should fail")
	}

	// No probe files left behind.
	entries, err := os.ReadDir(nested)
	if err != nil {
		t.Fatalf("failed to read directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}
