package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	got := SanitizeFileName("Updates_Software_PAN-OS for VM-Series/Hyper-V_10.1.0")
	want := "Updates_Software_PAN-OS for VM-Series-Hyper-V_10.1.0"
	if got != want {
		t.Errorf("SanitizeFileName() = %q, want %q", got, want)
	}
}

func TestEnsureDirectory(t *testing.T) {
	root := t.TempDir()

	nested := filepath.Join(root, "a", "b")
	if err := EnsureDirectory(nested); err != nil {
		t.Fatalf("EnsureDirectory(new): %v", err)
	}
	if info, err := os.Stat(nested); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to exist: %v", err)
	}
	if err := EnsureDirectory(nested); err != nil {
		t.Errorf("EnsureDirectory(existing): %v", err)
	}

	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := EnsureDirectory(file); err == nil {
		t.Error("expected error for regular file")
	}
}

func TestJSONFileRoundTrip(t *testing.T) {
	type cookie struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	path := filepath.Join(t.TempDir(), "cookies.json")

	if err := WriteJSONFile(path, []cookie{{Name: "session", Value: "abc"}}); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}
	got, err := ReadJSONFile[[]cookie](path)
	if err != nil {
		t.Fatalf("ReadJSONFile: %v", err)
	}
	if len(got) != 1 || got[0].Name != "session" || got[0].Value != "abc" {
		t.Errorf("unexpected cookies: %+v", got)
	}
}

func TestReadJSONFileMissing(t *testing.T) {
	_, err := ReadJSONFile[[]string](filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestDecodeJSONEmpty(t *testing.T) {
	if _, err := DecodeJSON[map[string]string](nil); err == nil {
		t.Error("expected error for empty data")
	}
}
