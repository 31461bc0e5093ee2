package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"prepme-backend/internal/models"
)

const usersCollection = "users"

// ErrNotFound is returned by every repository when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrAlreadyExists is returned when a create collides with an existing document.
var ErrAlreadyExists = errors.New("document already exists")

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		panic("Firestore client is not initialized for UserRepository")
	}
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document keyed by the Firebase Auth UID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s': %w", user.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

func (r *firestoreUserRepository) FindByBillingCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, fmt.Errorf("empty billing customer ID: %w", ErrNotFound)
	}
	return r.findOne(ctx, "billingCustomerId", customerID)
}

func (r *firestoreUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("empty email: %w", ErrNotFound)
	}
	return r.findOne(ctx, "email", email)
}

func (r *firestoreUserRepository) findOne(ctx context.Context, field, value string) (*models.User, error) {
	iter := r.client.Collection(usersCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("user with %s '%s' not found: %w", field, value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users by %s: %w", field, err)
	}
	return decodeUser(doc)
}

// LinkBillingCustomer runs a read-modify-write transaction so that two
// concurrent first checkouts cannot both store a customer ID.
func (r *firestoreUserRepository) LinkBillingCustomer(ctx context.Context, userID, customerID string) (string, error) {
	if userID == "" || customerID == "" {
		return "", errors.New("userID and customerID are required for LinkBillingCustomer")
	}
	ref := r.client.Collection(usersCollection).Doc(userID)

	var linked string
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		linked = "" // the function may be retried
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
			}
			return err
		}
		if existing, err := snap.DataAt("billingCustomerId"); err == nil {
			if id, ok := existing.(string); ok && id != "" {
				linked = id
				return nil
			}
		}
		linked = customerID
		return tx.Update(ref, []firestore.Update{
			{Path: "billingCustomerId", Value: customerID},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to link billing customer for user '%s': %w", userID, err)
	}
	return linked, nil
}

// SetSubscription overwrites the "subscription" field. Update fails on a
// missing document, so a snapshot never creates a user.
func (r *firestoreUserRepository) SetSubscription(ctx context.Context, userID string, snapshot models.SubscriptionSnapshot) error {
	if userID == "" {
		return errors.New("userID cannot be empty for SetSubscription operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "subscription", Value: snapshot},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to store subscription for user '%s': %w", userID, err)
	}
	return nil
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}
