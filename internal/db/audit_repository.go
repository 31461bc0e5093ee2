package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"prepme-backend/internal/models"
)

const (
	auditLogsCollection     = "auditLogs"
	billingEventsCollection = "billingEvents"
)

type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates an AuditRepository writing to "auditLogs".
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	if client == nil {
		panic("Firestore client is not initialized for AuditRepository")
	}
	return &firestoreAuditRepository{client: client}
}

func (r *firestoreAuditRepository) Create(ctx context.Context, logEntry models.AuditLog) error {
	docRef := r.client.Collection(auditLogsCollection).NewDoc()
	if _, err := docRef.Create(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

type firestoreBillingEventRepository struct {
	client *firestore.Client
}

// NewFirestoreBillingEventRepository creates a BillingEventRepository writing
// to "billingEvents", one document per provider event ID.
func NewFirestoreBillingEventRepository(client *firestore.Client) BillingEventRepository {
	if client == nil {
		panic("Firestore client is not initialized for BillingEventRepository")
	}
	return &firestoreBillingEventRepository{client: client}
}

func (r *firestoreBillingEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("eventID cannot be empty for Exists operation")
	}
	_, err := r.client.Collection(billingEventsCollection).Doc(eventID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up billing event '%s': %w", eventID, err)
	}
	return true, nil
}

// Record stores the event. Recording an event twice is not an error.
func (r *firestoreBillingEventRepository) Record(ctx context.Context, event models.BillingEvent) error {
	if event.ID == "" {
		return errors.New("event ID cannot be empty for Record operation")
	}
	_, err := r.client.Collection(billingEventsCollection).Doc(event.ID).Create(ctx, event)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to record billing event '%s': %w", event.ID, err)
	}
	return nil
}
