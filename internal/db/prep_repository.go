package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"prepme-backend/internal/models"
)

const prepsCollection = "preps"

// firestorePrepRepository implements the PrepRepository interface using Firestore.
type firestorePrepRepository struct {
	client *firestore.Client
}

// NewFirestorePrepRepository creates a new instance of firestorePrepRepository.
func NewFirestorePrepRepository(client *firestore.Client) PrepRepository {
	if client == nil {
		panic("Firestore client is not initialized for PrepRepository")
	}
	return &firestorePrepRepository{client: client}
}

// Create adds a new prep document with an auto-generated ID and sets prep.ID.
func (r *firestorePrepRepository) Create(ctx context.Context, prep *models.Prep) (string, error) {
	docRef := r.client.Collection(prepsCollection).NewDoc()
	prep.ID = docRef.ID

	if _, err := docRef.Create(ctx, prep); err != nil {
		return "", fmt.Errorf("failed to create prep: %w", err)
	}
	return docRef.ID, nil
}

func (r *firestorePrepRepository) GetByID(ctx context.Context, prepID string) (*models.Prep, error) {
	if prepID == "" {
		return nil, errors.New("prepID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(prepsCollection).Doc(prepID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("prep with ID '%s' not found: %w", prepID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get prep with ID '%s': %w", prepID, err)
	}

	var prep models.Prep
	if err := docSnap.DataTo(&prep); err != nil {
		return nil, fmt.Errorf("failed to decode prep data for ID '%s': %w", prepID, err)
	}
	prep.ID = docSnap.Ref.ID
	return &prep, nil
}

// ListByUserID returns the user's preps, newest first. A limit of zero or
// less returns all of them.
func (r *firestorePrepRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*models.Prep, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for ListByUserID operation")
	}

	query := r.client.Collection(prepsCollection).Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	preps := make([]*models.Prep, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate preps for user '%s': %w", userID, err)
		}

		var prep models.Prep
		if err := doc.DataTo(&prep); err != nil {
			return nil, fmt.Errorf("failed to decode prep data for ID '%s': %w", doc.Ref.ID, err)
		}
		prep.ID = doc.Ref.ID
		preps = append(preps, &prep)
	}
	return preps, nil
}

// CountByUserIDSince counts preps the user created at or after since.
// Monthly counts are small, so iterating the snapshots is acceptable.
func (r *firestorePrepRepository) CountByUserIDSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if userID == "" {
		return 0, errors.New("userID cannot be empty for CountByUserIDSince operation")
	}
	iter := r.client.Collection(prepsCollection).
		Where("userId", "==", userID).
		Where("createdAt", ">=", since).
		Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to iterate preps for counting (user '%s'): %w", userID, err)
		}
		count++
	}
	return count, nil
}

func (r *firestorePrepRepository) UpdateNotes(ctx context.Context, prepID, notes string, at time.Time) error {
	if prepID == "" {
		return errors.New("prepID cannot be empty for UpdateNotes operation")
	}
	_, err := r.client.Collection(prepsCollection).Doc(prepID).Update(ctx, []firestore.Update{
		{Path: "notes", Value: notes},
		{Path: "lastUpdated", Value: at},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("prep with ID '%s' not found: %w", prepID, ErrNotFound)
		}
		return fmt.Errorf("failed to update notes of prep '%s': %w", prepID, err)
	}
	return nil
}

// Delete removes a prep document. Firestore deletes of missing documents
// succeed, so existence is asserted with a precondition.
func (r *firestorePrepRepository) Delete(ctx context.Context, prepID string) error {
	if prepID == "" {
		return errors.New("prepID cannot be empty for Delete operation")
	}
	_, err := r.client.Collection(prepsCollection).Doc(prepID).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("prep with ID '%s' not found for deletion: %w", prepID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete prep with ID '%s': %w", prepID, err)
	}
	return nil
}
