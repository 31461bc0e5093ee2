package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prepme-backend/internal/db"
	"prepme-backend/internal/models"
)

// Plans identifies the paid plans by price ID and sets the free allowance.
type Plans struct {
	IndividualPriceID string
	ProPriceID        string
	FreePrepsPerMonth int
}

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	plans    Plans
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository, plans Plans, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		plans:    plans,
		logger:   logger,
		now:      time.Now,
	}
}

// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one.
// Returns the user, a boolean indicating if the user was created, and an error if any.
func (s *userService) GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}

	now := s.now().UTC()
	newUser := &models.User{
		ID:          userID,
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		// Two first requests raced; the other one created the document.
		if errors.Is(err, db.ErrAlreadyExists) {
			existing, getErr := s.userRepo.GetByID(ctx, userID)
			if getErr != nil {
				return nil, false, fmt.Errorf("failed to re-read user '%s' after concurrent create: %w", userID, getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", userID, err)
	}
	s.logger.Info("Created user document", zap.String("userID", userID))
	return newUser, true, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}

// GetSubscription returns the stored snapshot together with the plan flags
// the front-end gates features on. The plan flags follow the price alone, so a
// past_due Pro subscription still reports IsPro.
func (s *userService) GetSubscription(ctx context.Context, userID string) (*models.SubscriptionView, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.plans.view(user.Subscription), nil
}

func (s *userService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (p Plans) view(sub *models.SubscriptionSnapshot) *models.SubscriptionView {
	v := &models.SubscriptionView{Subscription: sub, IsActive: sub.IsActive()}
	if sub != nil {
		v.IsPro = p.ProPriceID != "" && sub.PriceID == p.ProPriceID
		v.IsIndividual = p.IndividualPriceID != "" && sub.PriceID == p.IndividualPriceID
	}
	return v
}
