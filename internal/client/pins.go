package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/google/uuid"
)

// ErrNotSignedIn is returned by pin operations that require a user.
var ErrNotSignedIn = errors.New("no signed-in user")

// PinCache is the client-side copy of the shared pin board. It is kept
// consistent with local actions even when the backend is unreachable.
type PinCache struct {
	mu   sync.RWMutex
	pins []types.Pin
}

// Replace swaps the cached pins for pins.
func (c *PinCache) Replace(pins []types.Pin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins = append([]types.Pin(nil), pins...)
}

// Append adds a pin.
func (c *PinCache) Append(pin types.Pin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pins = append(c.pins, pin)
}

// RemoveUser drops every pin owned by userID.
func (c *PinCache) RemoveUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.pins[:0]
	for _, p := range c.pins {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	c.pins = kept
}

// All returns a copy of the cached pins.
func (c *PinCache) All() []types.Pin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Pin{}, c.pins...)
}

// PinService manages pins through the backend and a local cache.
type PinService struct {
	backend *Backend
	cache   *PinCache
	now     func() time.Time
	newID   func() string
}

// NewPinService creates a pin service backed by b.
func NewPinService(b *Backend) *PinService {
	return &PinService{
		backend: b,
		cache:   &PinCache{},
		now:     time.Now,
		newID:   func() string { return "pin_" + uuid.NewString() },
	}
}

// Cache returns the local pin cache.
func (s *PinService) Cache() *PinCache {
	return s.cache
}

// AddPin drops a pin for userID at lat/lng. The pin is cached even when the
// backend write fails; that error is still returned. An empty userID is a
// no-op and returns ErrNotSignedIn.
func (s *PinService) AddPin(ctx context.Context, userID string, lat, lng float64) (types.Pin, error) {
	if userID == "" {
		return types.Pin{}, ErrNotSignedIn
	}

	pin := types.Pin{
		ID:        s.newID(),
		Latitude:  lat,
		Longitude: lng,
		UserID:    userID,
		Timestamp: s.now().UnixMilli(),
	}
	s.cache.Append(pin)

	params := url.Values{
		"userId":    {pin.UserID},
		"pinId":     {pin.ID},
		"latitude":  {formatCoord(pin.Latitude)},
		"longitude": {formatCoord(pin.Longitude)},
		"timestamp": {strconv.FormatInt(pin.Timestamp, 10)},
	}
	if _, err := s.backend.get(ctx, "add-pin", params); err != nil {
		s.backend.log().Warn("failed to save pin, kept locally", "pin_id", pin.ID, "error", err)
		return pin, err
	}
	return pin, nil
}

// AllPins reads every user's pins. A successful read replaces the cache; on
// failure the cached pins are returned along with the error.
func (s *PinService) AllPins(ctx context.Context) ([]types.Pin, error) {
	body, err := s.backend.get(ctx, "get-all-pins", nil)
	if err != nil {
		s.backend.log().Warn("failed to fetch pins, using cache", "error", err)
		return s.cache.All(), err
	}

	var resp struct {
		Result string      `json:"result"`
		Pins   []types.Pin `json:"pins"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return s.cache.All(), fmt.Errorf("failed to decode pins: %w", err)
	}
	if resp.Result != "success" {
		s.backend.log().Warn("pin read not successful, using cache", "result", resp.Result)
		return s.cache.All(), fmt.Errorf("failed to list pins: result %q", resp.Result)
	}

	s.cache.Replace(resp.Pins)
	return s.cache.All(), nil
}

// ClearUserPins removes every pin of userID. The cache is filtered whatever
// the backend outcome.
func (s *PinService) ClearUserPins(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotSignedIn
	}

	s.cache.RemoveUser(userID)
	if _, err := s.backend.get(ctx, "drop-pins", url.Values{"userId": {userID}}); err != nil {
		s.backend.log().Warn("failed to clear pins remotely", "user_id", userID, "error", err)
		return err
	}
	return nil
}
