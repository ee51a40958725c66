package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "contracts.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			expectError: false,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/contracts.csv",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "contract export")

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestOpenOutput(t *testing.T) {
	writer, closeWriter, err := openOutput("")
	if err != nil {
		t.Fatalf("stdout output failed: %v", err)
	}
	closeWriter()
	if writer != os.Stdout {
		t.Error("empty path should write to stdout")
	}

	path := filepath.Join(t.TempDir(), "report.json")
	writer, closeWriter, err = openOutput(path)
	if err != nil {
		t.Fatalf("file output failed: %v", err)
	}
	if _, err := writer.Write([]byte("{}")); err != nil {
		t.Errorf("write failed: %v", err)
	}
	closeWriter()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file not created: %v", err)
	}
}
