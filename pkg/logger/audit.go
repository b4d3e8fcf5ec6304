package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Audit file names kept next to the pipeline artifacts
const (
	ChartErrorsFile    = "errores_s30.log"
	PipelineErrorsFile = "errores_pipeline.log"
)

// ChartProgressFile returns the per-label chart progress log name
func ChartProgressFile(label string) string {
	return fmt.Sprintf("log_graficos_%s.txt", label)
}

// AuditFile appends timestamped lines to a plain text file.
// 운영자가 tail로 보는 진행/오류 기록용 (구조화 로그와 별개)
type AuditFile struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewAuditFile returns an AuditFile for name inside dir
func NewAuditFile(dir, name string) *AuditFile {
	return &AuditFile{path: filepath.Join(dir, name), now: time.Now}
}

// Path returns the file location
func (a *AuditFile) Path() string {
	return a.path
}

// Printf appends one line; the file is opened and closed per call
func (a *AuditFile) Printf(format string, args ...interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file %s: %w", a.path, err)
	}
	defer f.Close()

	line := fmt.Sprintf(format, args...)
	if _, err := fmt.Fprintf(f, "%s - %s\n", a.now().Format("2006-01-02 15:04:05"), line); err != nil {
		return fmt.Errorf("write audit file %s: %w", a.path, err)
	}
	return nil
}
