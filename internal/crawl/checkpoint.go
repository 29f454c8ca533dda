// internal/crawl/checkpoint.go
package crawl

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/valpere/FormScrapexter/internal/utils"
)

// CheckpointSuffix is appended to the output file name to derive the
// default checkpoint path
const CheckpointSuffix = ".checkpoint"

// Checkpoint is the append-only log of completed URLs. Membership only
// grows during a run.
type Checkpoint struct {
	path string

	mu   sync.Mutex
	file *os.File
	done map[string]bool
}

// OpenCheckpoint loads the completed URLs recorded at path, creating the
// file when it does not exist yet.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{path: path, done: make(map[string]bool)}

	if err := cp.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeCheckpoint, "failed to open checkpoint").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	cp.file = f
	return cp, nil
}

func (cp *Checkpoint) load() error {
	f, err := os.Open(cp.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return utils.NewError(utils.ErrCodeCheckpoint, "failed to read checkpoint").
			WithCause(err).
			WithContext("path", cp.path).
			Build()
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			cp.done[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return utils.NewError(utils.ErrCodeCheckpoint, "failed to read checkpoint").
			WithCause(err).
			WithContext("path", cp.path).
			Build()
	}
	return nil
}

// Path returns the checkpoint file path
func (cp *Checkpoint) Path() string {
	return cp.path
}

// Contains reports whether url was completed by an earlier run or earlier
// in this one
func (cp *Checkpoint) Contains(url string) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.done[strings.TrimSpace(url)]
}

// Len returns the number of completed URLs
func (cp *Checkpoint) Len() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.done)
}

// Append records url as completed and syncs the log to disk
func (cp *Checkpoint) Append(url string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.file == nil {
		return fmt.Errorf("checkpoint %s is closed", cp.path)
	}
	if _, err := cp.file.WriteString(url + "\n"); err != nil {
		return err
	}
	if err := cp.file.Sync(); err != nil {
		return err
	}
	cp.done[strings.TrimSpace(url)] = true
	return nil
}

// Close closes the log file
func (cp *Checkpoint) Close() error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.file == nil {
		return nil
	}
	err := cp.file.Close()
	cp.file = nil
	return err
}
