// Package storage persists user pins.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MeKo-Tech/redliningmap/internal/types"
)

// PinsCollection is the name of the flat pin collection/table.
const PinsCollection = "pins"

// ErrInvalidPin is returned when a pin lacks its id or user id.
var ErrInvalidPin = errors.New("pin requires id and userId")

// PinStore is the pin persistence used by the backend handlers.
type PinStore interface {
	// AddPin stores or replaces the pin with the same id.
	AddPin(ctx context.Context, pin types.Pin) error
	// AllPins returns the pins of every user.
	AllPins(ctx context.Context) ([]types.Pin, error)
	// ClearUser removes every pin of userID.
	ClearUser(ctx context.Context, userID string) error
	Close() error
}

func validatePin(pin types.Pin) error {
	if pin.ID == "" || pin.UserID == "" {
		return fmt.Errorf("%w: id=%q userId=%q", ErrInvalidPin, pin.ID, pin.UserID)
	}
	return nil
}

// sortPins orders pins by timestamp, then id.
func sortPins(pins []types.Pin) {
	sort.Slice(pins, func(i, j int) bool {
		if pins[i].Timestamp != pins[j].Timestamp {
			return pins[i].Timestamp < pins[j].Timestamp
		}
		return pins[i].ID < pins[j].ID
	})
}

// MemoryStore keeps pins in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pins map[string]types.Pin
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pins: make(map[string]types.Pin)}
}

func (s *MemoryStore) AddPin(_ context.Context, pin types.Pin) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[pin.ID] = pin
	return nil
}

func (s *MemoryStore) AllPins(_ context.Context) ([]types.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pins := make([]types.Pin, 0, len(s.pins))
	for _, p := range s.pins {
		pins = append(pins, p)
	}
	sortPins(pins)
	return pins, nil
}

func (s *MemoryStore) ClearUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pins {
		if p.UserID == userID {
			delete(s.pins, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
