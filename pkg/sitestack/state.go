package sitestack

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// StackState is the journal entry for one stack, keyed by domain. It is
// rewritten after every workflow step so an interrupted run can be
// diagnosed and resumed.
type StackState struct {
	Domain             string    `json:"domain"`
	Bucket             string    `json:"bucket"`
	Region             string    `json:"region"`
	DistributionID     string    `json:"distribution_id,omitempty"`
	DistributionDomain string    `json:"distribution_domain,omitempty"`
	Workflow           Workflow  `json:"workflow"`
	RunID              string    `json:"run_id"`
	CompletedSteps     []string  `json:"completed_steps"`
	FailedStep         string    `json:"failed_step,omitempty"`
	LastError          string    `json:"last_error,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// StateStore persists stack journals.
type StateStore interface {
	// Save stores the state for st.Domain.
	Save(ctx context.Context, st StackState) error

	// Load returns the state for domain, or a not_found error.
	Load(ctx context.Context, domain string) (*StackState, error)

	// Delete removes the state for domain. Deleting a missing entry is not
	// an error.
	Delete(ctx context.Context, domain string) error
}

// StateStoreVersion is the current schema version for state storage.
const StateStoreVersion = 1

// StateData is the serializable state format.
type StateData struct {
	Version   int                   `json:"version"`
	Stacks    map[string]StackState `json:"stacks"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func newStateData() StateData {
	return StateData{
		Version:   StateStoreVersion,
		Stacks:    make(map[string]StackState),
		UpdatedAt: time.Now(),
	}
}

// MemoryStateStore is an in-memory StateStore implementation for testing.
type MemoryStateStore struct {
	mu    sync.RWMutex
	state StateData
	saves int
}

// NewMemoryStateStore creates a new in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{state: newStateData()}
}

// Save implements StateStore.
func (s *MemoryStateStore) Save(ctx context.Context, st StackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Stacks[st.Domain] = st
	s.state.UpdatedAt = time.Now()
	s.saves++
	return nil
}

// Load implements StateStore.
func (s *MemoryStateStore) Load(ctx context.Context, domain string) (*StackState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.state.Stacks[domain]
	if !exists {
		return nil, ErrNotFound("stack state", domain)
	}
	return &st, nil
}

// Delete implements StateStore.
func (s *MemoryStateStore) Delete(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state.Stacks, domain)
	s.state.UpdatedAt = time.Now()
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStateStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FileStateStore is a file-based StateStore implementation.
type FileStateStore struct {
	mu       sync.RWMutex
	filePath string
	state    StateData
}

// NewFileStateStore creates a new file-based state store.
// If the file exists, it loads the existing state.
func NewFileStateStore(filePath string) (*FileStateStore, error) {
	s := &FileStateStore{
		filePath: filePath,
		state:    newStateData(),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load state")
	}

	return s, nil
}

func (s *FileStateStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var state StateData
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "invalid state file format")
	}
	if state.Version > StateStoreVersion {
		return errors.Errorf("state file version %d is newer than supported version %d", state.Version, StateStoreVersion)
	}
	state.Version = StateStoreVersion
	if state.Stacks == nil {
		state.Stacks = make(map[string]StackState)
	}

	s.state = state
	return nil
}

// save writes state to file atomically.
func (s *FileStateStore) save() error {
	s.state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write temp state file")
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return errors.Wrap(err, "failed to rename state file")
	}

	return nil
}

// Save implements StateStore.
func (s *FileStateStore) Save(ctx context.Context, st StackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Stacks[st.Domain] = st
	return s.save()
}

// Load implements StateStore.
func (s *FileStateStore) Load(ctx context.Context, domain string) (*StackState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.state.Stacks[domain]
	if !exists {
		return nil, ErrNotFound("stack state", domain)
	}
	return &st, nil
}

// Delete implements StateStore.
func (s *FileStateStore) Delete(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.Stacks[domain]; !exists {
		return nil
	}

	delete(s.state.Stacks, domain)
	return s.save()
}

// DefaultStateStorePath returns the default path for the state store file.
func DefaultStateStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".sitestack", "state.json")
}
