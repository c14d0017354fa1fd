package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreConfig configures the Firestore pin store.
type FirestoreConfig struct {
	ProjectID string
	// CredentialsFile is a service account key. When empty or missing,
	// application default credentials are used.
	CredentialsFile string
}

// FirestoreStore keeps pins in a flat Firestore collection, one document per
// pin keyed by pin id.
type FirestoreStore struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewFirestoreStore connects to Firestore.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig, logger *slog.Logger) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			logger.Warn("credentials file not found, using default authentication", "path", cfg.CredentialsFile)
		} else {
			logger.Info("using credentials file", "path", cfg.CredentialsFile)
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logger.Info("Firestore client initialized", "project", cfg.ProjectID)

	return &FirestoreStore{client: client, logger: logger}, nil
}

func (s *FirestoreStore) AddPin(ctx context.Context, pin types.Pin) error {
	if err := validatePin(pin); err != nil {
		return err
	}
	if _, err := s.client.Collection(PinsCollection).Doc(pin.ID).Set(ctx, pin); err != nil {
		return fmt.Errorf("failed to save pin %s: %w", pin.ID, err)
	}
	return nil
}

func (s *FirestoreStore) AllPins(ctx context.Context) ([]types.Pin, error) {
	iter := s.client.Collection(PinsCollection).Documents(ctx)
	defer iter.Stop()

	pins := []types.Pin{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pins: %w", err)
		}

		var p types.Pin
		if err := doc.DataTo(&p); err != nil {
			s.logger.Warn("skipping malformed pin document", "doc", doc.Ref.ID, "error", err)
			continue
		}
		if p.ID == "" {
			p.ID = doc.Ref.ID
		}
		pins = append(pins, p)
	}

	sortPins(pins)
	return pins, nil
}

func (s *FirestoreStore) ClearUser(ctx context.Context, userID string) error {
	iter := s.client.Collection(PinsCollection).Where("userId", "==", userID).Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to query pins of %s: %w", userID, err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete pin %s: %w", doc.Ref.ID, err)
		}
		deleted++
	}

	s.logger.Info("cleared user pins", "user_id", userID, "deleted", deleted)
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
