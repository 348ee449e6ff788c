package tracker

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestScanClassifiesEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "apps-8290.tgz", 10)
	writeFile(t, dir, "panos-10.1.0.tgz.crdownload", 4)
	writeFile(t, dir, ".com.google.Chrome.abc123", 1)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tr := New(Options{})
	entries, err := tr.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []Entry{
		{Name: "apps-8290.tgz", SizeBytes: 10, Transient: false},
		{Name: "panos-10.1.0.tgz", SizeBytes: 4, Transient: true},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("Scan() = %+v, want %+v", entries, want)
	}
}

func TestScanIncludeHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".partial", 3)

	entries, err := New(Options{IncludeHidden: true}).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != ".partial" {
		t.Errorf("expected hidden file to be reported, got %+v", entries)
	}
}

func TestScanTransientWinsOverPlaceholder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.zip", 0)
	writeFile(t, dir, "notes.zip.part", 42)

	tr := New(Options{TransientSuffixes: []string{".part"}})
	entries, err := tr.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].Transient || entries[0].SizeBytes != 42 {
		t.Errorf("expected transient entry of 42 bytes, got %+v", entries[0])
	}
}

func TestScanIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.tgz", 2)
	writeFile(t, dir, "a.tgz.crdownload", 1)
	writeFile(t, dir, "c.html", 3)

	tr := New(Options{})
	first, err := tr.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := tr.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("back-to-back scans differ: %+v vs %+v", first, second)
	}
}

func TestScanDirectoryUnavailable(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone") },
		},
		{
			name: "regular file",
			path: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "file", 1)
				return filepath.Join(dir, "file")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Scan(tt.path(t))
			if !errors.Is(err, ErrDirectoryUnavailable) {
				t.Errorf("expected ErrDirectoryUnavailable, got %v", err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tr := New(Options{TransientSuffixes: []string{".crdownload", ".part"}})

	tests := []struct {
		in        string
		name      string
		transient bool
	}{
		{"file.tgz", "file.tgz", false},
		{"file.tgz.crdownload", "file.tgz", true},
		{"Unconfirmed 12345.crdownload", "Unconfirmed 12345", true},
		{"file.part", "file", true},
		{".crdownload", ".crdownload", false},
	}

	for _, tt := range tests {
		name, transient := tr.Classify(tt.in)
		if name != tt.name || transient != tt.transient {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.in, name, transient, tt.name, tt.transient)
		}
	}
}

func TestNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.tgz", 1)

	names, err := New(Options{}).Names(dir)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if _, ok := names["old.tgz"]; !ok || len(names) != 1 {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestScanMarksPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Unconfirmed 482913.crdownload", 5)
	writeFile(t, dir, "Unconfirmed notes.txt", 2)
	writeFile(t, dir, "panos-10.1.0.tgz.crdownload", 4)

	entries, err := New(Options{}).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []Entry{
		{Name: "Unconfirmed 482913", SizeBytes: 5, Transient: true, Placeholder: true},
		{Name: "Unconfirmed notes.txt", SizeBytes: 2},
		{Name: "panos-10.1.0.tgz", SizeBytes: 4, Transient: true},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("Scan() = %+v, want %+v", entries, want)
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		in       string
		want     bool
	}{
		{"default pattern", nil, "Unconfirmed 12345", true},
		{"default pattern miss", nil, "PanOS_220-10.1.0", false},
		{"custom pattern", []string{"download-*.tmp"}, "download-7.tmp", true},
		{"custom replaces default", []string{"download-*.tmp"}, "Unconfirmed 12345", false},
		{"disabled", []string{}, "Unconfirmed 12345", false},
		{"malformed pattern", []string{"["}, "[", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(Options{PlaceholderPatterns: tt.patterns})
			if got := tr.IsPlaceholder(tt.in); got != tt.want {
				t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
