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

const promptsCollection = "systemPrompts"

type firestorePromptRepository struct {
	client *firestore.Client
}

// NewFirestorePromptRepository creates a PromptRepository backed by the
// "systemPrompts" collection.
func NewFirestorePromptRepository(client *firestore.Client) PromptRepository {
	if client == nil {
		panic("Firestore client is not initialized for PromptRepository")
	}
	return &firestorePromptRepository{client: client}
}

func (r *firestorePromptRepository) List(ctx context.Context) ([]*models.SystemPrompt, error) {
	return r.collect(r.client.Collection(promptsCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx))
}

func (r *firestorePromptRepository) GetByID(ctx context.Context, promptID string) (*models.SystemPrompt, error) {
	if promptID == "" {
		return nil, errors.New("promptID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(promptsCollection).Doc(promptID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("prompt with ID '%s' not found: %w", promptID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get prompt with ID '%s': %w", promptID, err)
	}
	return decodePrompt(docSnap)
}

func (r *firestorePromptRepository) GetActive(ctx context.Context) (*models.SystemPrompt, error) {
	prompts, err := r.collect(r.client.Collection(promptsCollection).Where("isActive", "==", true).Limit(1).Documents(ctx))
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no active prompt: %w", ErrNotFound)
	}
	return prompts[0], nil
}

func (r *firestorePromptRepository) Create(ctx context.Context, prompt *models.SystemPrompt) (string, error) {
	docRef := r.client.Collection(promptsCollection).NewDoc()
	prompt.ID = docRef.ID
	if _, err := docRef.Create(ctx, prompt); err != nil {
		return "", fmt.Errorf("failed to create prompt: %w", err)
	}
	return docRef.ID, nil
}

func (r *firestorePromptRepository) Update(ctx context.Context, prompt *models.SystemPrompt) error {
	if prompt.ID == "" {
		return errors.New("prompt ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(promptsCollection).Doc(prompt.ID).Set(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to update prompt with ID '%s': %w", prompt.ID, err)
	}
	return nil
}

func (r *firestorePromptRepository) Delete(ctx context.Context, promptID string) error {
	if promptID == "" {
		return errors.New("promptID cannot be empty for Delete operation")
	}
	_, err := r.client.Collection(promptsCollection).Doc(promptID).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("prompt with ID '%s' not found for deletion: %w", promptID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete prompt with ID '%s': %w", promptID, err)
	}
	return nil
}

// Activate flips isActive inside one transaction so readers never see two
// active prompts.
func (r *firestorePromptRepository) Activate(ctx context.Context, promptID string, at time.Time) error {
	if promptID == "" {
		return errors.New("promptID cannot be empty for Activate operation")
	}
	col := r.client.Collection(promptsCollection)
	target := col.Doc(promptID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(target); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("prompt with ID '%s' not found: %w", promptID, ErrNotFound)
			}
			return err
		}
		active, err := tx.Documents(col.Where("isActive", "==", true)).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range active {
			if doc.Ref.ID == promptID {
				continue
			}
			if err := tx.Update(doc.Ref, []firestore.Update{
				{Path: "isActive", Value: false},
				{Path: "updatedAt", Value: at},
			}); err != nil {
				return err
			}
		}
		return tx.Update(target, []firestore.Update{
			{Path: "isActive", Value: true},
			{Path: "updatedAt", Value: at},
		})
	})
	if err != nil {
		return fmt.Errorf("failed to activate prompt '%s': %w", promptID, err)
	}
	return nil
}

func (r *firestorePromptRepository) collect(iter *firestore.DocumentIterator) ([]*models.SystemPrompt, error) {
	defer iter.Stop()

	prompts := make([]*models.SystemPrompt, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate prompts: %w", err)
		}
		prompt, err := decodePrompt(doc)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return prompts, nil
}

func decodePrompt(docSnap *firestore.DocumentSnapshot) (*models.SystemPrompt, error) {
	var prompt models.SystemPrompt
	if err := docSnap.DataTo(&prompt); err != nil {
		return nil, fmt.Errorf("failed to decode prompt data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	prompt.ID = docSnap.Ref.ID
	return &prompt, nil
}
