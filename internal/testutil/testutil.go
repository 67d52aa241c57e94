package testutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TempFile creates a temporary file with the given content and returns its path.
// The file is automatically cleaned up when the test ends.
func TempFile(t *testing.T, content string) string {
	t.Helper()
	
	tmpfile, err := os.CreateTemp("", "zeekagent-test-*.log")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
		t.Fatalf("failed to write to temp file: %v", err)
	}
	
	if err := tmpfile.Close(); err != nil {
		os.Remove(tmpfile.Name())
		t.Fatalf("failed to close temp file: %v", err)
	}
	
	t.Cleanup(func() {
		os.Remove(tmpfile.Name())
	})
	
	return tmpfile.Name()
}

// TempDir creates a temporary directory and returns its path.
// The directory is automatically cleaned up when the test ends.
func TempDir(t *testing.T) string {
	t.Helper()
	
	tmpdir, err := os.MkdirTemp("", "zeekagent-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	
	t.Cleanup(func() {
		os.RemoveAll(tmpdir)
	})
	
	return tmpdir
}

// CreateFileTree creates a directory structure with files based on the provided map.
// Keys are relative file paths, values are file contents.
func CreateFileTree(t *testing.T, baseDir string, files map[string]string) {
	t.Helper()
	
	for path, content := range files {
		fullPath := filepath.Join(baseDir, path)
		dir := filepath.Dir(fullPath)
		
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
		
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write file %s: %v", fullPath, err)
		}
	}
}

// AssertFileContents checks that a file contains the expected content.
func AssertFileContents(t *testing.T, path, expected string) {
	t.Helper()
	
	actual, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	
	if string(actual) != expected {
		t.Errorf("file content mismatch:\nexpected: %q\nactual: %q", expected, string(actual))
	}
}

// CaptureOutput captures stdout during the execution of a function.
func CaptureOutput(t *testing.T, f func()) string {
	t.Helper()
	
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w
	
	outCh := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outCh <- buf.String()
	}()
	
	f()
	
	w.Close()
	os.Stdout = old
	
	return <-outCh
}

// AssertError checks that an error is not nil and contains the expected substring.
func AssertError(t *testing.T, err error, contains string) {
	t.Helper()
	
	if err == nil {
		t.Errorf("expected error containing %q, got nil", contains)
		return
	}
	
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("expected error containing %q, got %q", contains, err.Error())
	}
}

// AssertNoError checks that an error is nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	
	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

// AssertEqual checks that two values are equal.
func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	
	if expected != actual {
		t.Errorf("expected %v, got %v", expected, actual)
	}
}

// AssertContains checks that a string contains a substring.
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

// AssertNotContains checks that a string does not contain a substring.
func AssertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	
	if strings.Contains(s, substr) {
		t.Errorf("expected %q not to contain %q", s, substr)
	}
}

// ZeekHeader returns a Zeek TSV header for the given log path and fields.
// All fields are declared with the matching type from types.
func ZeekHeader(path string, fields, types []string) string {
	var builder strings.Builder
	builder.WriteString("#separator \\x09\n")
	builder.WriteString("#set_separator\t,\n")
	builder.WriteString("#empty_field\t(empty)\n")
	builder.WriteString("#unset_field\t-\n")
	builder.WriteString("#path\t" + path + "\n")
	builder.WriteString("#open\t2018-01-30-17-00-00\n")
	builder.WriteString("#fields\t" + strings.Join(fields, "\t") + "\n")
	builder.WriteString("#types\t" + strings.Join(types, "\t") + "\n")
	return builder.String()
}

var (
	connFields = []string{"ts", "uid", "id.orig_h", "id.resp_h", "tunnel_parents"}
	connTypes  = []string{"time", "string", "addr", "addr", "set[string]"}
)

const connClose = "#close\t2018-01-30-18-00-00\n"

func connRow(i int, row [3]string) string {
	return fmt.Sprintf("%s\tC%d\t%s\t%s\t(empty)\n", row[0], i, row[1], row[2])
}

// GenerateConnLog generates a conn style Zeek log with the given rows. Each
// row is ts, origin address, responder address. A #close comment ends it.
func GenerateConnLog(path string, rows [][3]string) string {
	var builder strings.Builder
	builder.WriteString(ZeekHeader(path, connFields, connTypes))
	for i, row := range rows {
		builder.WriteString(connRow(i, row))
	}
	builder.WriteString(connClose)
	return builder.String()
}

// GenerateRows generates count rows alternating over the given addresses.
func GenerateRows(count int, addrs ...string) [][3]string {
	rows := make([][3]string, count)
	for i := 0; i < count; i++ {
		rows[i] = [3]string{
			fmt.Sprintf("%d.%06d", 1517336042+i, i%1000000),
			addrs[i%len(addrs)],
			"172.217.8.206",
		}
	}
	return rows
}

// TableTest is a generic structure for table-driven tests.
type TableTest[T any] struct {
	Name     string
	Input    T
	Expected interface{}
	WantErr  bool
	ErrMsg   string
}
