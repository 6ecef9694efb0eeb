package state

import (
	"fmt"
	"sync"
)

type flagsFile struct {
	ProcessingEnabled bool `json:"processing_enabled"`
}

// Flags is the persisted gate the serve scheduler consults before running
// any job. Missing file means enabled.
type Flags struct {
	path string

	mu    sync.Mutex
	flags flagsFile
}

// NewFlags loads the flag file from path.
func NewFlags(path string) *Flags {
	f := &Flags{path: path, flags: flagsFile{ProcessingEnabled: true}}
	if found, err := readJSONFile(path, &f.flags); err != nil || !found {
		f.flags = flagsFile{ProcessingEnabled: true}
	}
	return f
}

// ProcessingEnabled reports whether scheduled processing is switched on.
func (f *Flags) ProcessingEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags.ProcessingEnabled
}

// SetProcessingEnabled flips the gate and persists it.
func (f *Flags) SetProcessingEnabled(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags.ProcessingEnabled = enabled
	if err := writeJSONFile(f.path, f.flags); err != nil {
		return fmt.Errorf("persist flags: %w", err)
	}
	return nil
}
