package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"prepme-backend/internal/db"
	"prepme-backend/internal/metrics"
	"prepme-backend/internal/models"
)

const maxListedPreps = 100

// prepService implements the PrepService interface.
type prepService struct {
	prepRepo db.PrepRepository
	userRepo db.UserRepository
	analyzer ProfileAnalyzer
	contexts ContextService
	audit    AuditService
	plans    Plans
	notes    *bluemonday.Policy
	logger   *zap.Logger
	now      func() time.Time
}

// NewPrepService creates a new PrepService instance.
func NewPrepService(
	pr db.PrepRepository,
	ur db.UserRepository,
	analyzer ProfileAnalyzer,
	contexts ContextService,
	as AuditService,
	plans Plans,
	logger *zap.Logger,
) PrepService {
	return &prepService{
		prepRepo: pr,
		userRepo: ur,
		analyzer: analyzer,
		contexts: contexts,
		audit:    as,
		plans:    plans,
		notes:    bluemonday.UGCPolicy(),
		logger:   logger,
		now:      time.Now,
	}
}

// checkPrepLimit enforces the free allowance. Users with an active
// subscription are not limited.
func (s *prepService) checkPrepLimit(ctx context.Context, user *models.User) error {
	if user.Subscription.IsActive() {
		return nil
	}
	since := monthStart(s.now())
	count, err := s.prepRepo.CountByUserIDSince(ctx, user.ID, since)
	if err != nil {
		return fmt.Errorf("failed to count preps for user '%s': %w", user.ID, err)
	}
	if count >= s.plans.FreePrepsPerMonth {
		return fmt.Errorf("%w: %d of %d used since %s", ErrPrepLimitReached, count, s.plans.FreePrepsPerMonth, since.Format("2006-01-02"))
	}
	return nil
}

// CreatePrep analyzes a LinkedIn profile and stores the resulting prep sheet.
func (s *prepService) CreatePrep(ctx context.Context, userID, linkedinURL string) (*models.Prep, error) {
	linkedinURL, err := normalizeLinkedInURL(linkedinURL)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user '%s' for plan check: %w", userID, err)
	}
	if err := s.checkPrepLimit(ctx, user); err != nil {
		if errors.Is(err, ErrPrepLimitReached) {
			metrics.IncPrep("limited")
		}
		return nil, err
	}

	profile, err := s.analyzer.Analyze(ctx, linkedinURL, userID)
	if err != nil {
		metrics.IncPrep("failed")
		s.logger.Error("Profile analysis failed", zap.String("userID", userID), zap.String("linkedinUrl", linkedinURL), zap.Error(err))
		return nil, &UpstreamError{Message: "Failed to analyze profile", Err: err}
	}

	now := s.now().UTC()
	prep := &models.Prep{
		UserID:      userID,
		LinkedInURL: linkedinURL,
		ProfileName: profile.PersonalInfo.Name,
		AnalyzedAt:  now,
		ProfileData: profile,
		Notes:       "",
		CreatedAt:   now,
		LastUpdated: now,
	}
	prepID, err := s.prepRepo.Create(ctx, prep)
	if err != nil {
		metrics.IncPrep("failed")
		return nil, fmt.Errorf("failed to create prep in repository: %w", err)
	}
	prep.ID = prepID
	metrics.IncPrep("created")

	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditPrepCreate,
		TargetType: "PREP",
		TargetID:   prepID,
		Details:    map[string]interface{}{"linkedinUrl": linkedinURL, "profileName": prep.ProfileName},
	})
	return prep, nil
}

// GetPrep retrieves a prep owned by userID.
func (s *prepService) GetPrep(ctx context.Context, userID, prepID string) (*models.Prep, error) {
	prep, err := s.prepRepo.GetByID(ctx, prepID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: prep with ID '%s'", ErrPrepNotFound, prepID)
		}
		return nil, fmt.Errorf("failed to get prep '%s' from repository: %w", prepID, err)
	}
	if prep.UserID != userID {
		return nil, fmt.Errorf("%w: user '%s' does not own prep '%s'", ErrForbidden, userID, prepID)
	}
	return prep, nil
}

// ListPreps returns the user's preps, newest first.
func (s *prepService) ListPreps(ctx context.Context, userID string) ([]*models.Prep, error) {
	preps, err := s.prepRepo.ListByUserID(ctx, userID, maxListedPreps)
	if err != nil {
		return nil, fmt.Errorf("failed to list preps for user '%s': %w", userID, err)
	}
	return preps, nil
}

// UpdateNotes replaces the notes of a prep with sanitized HTML.
func (s *prepService) UpdateNotes(ctx context.Context, userID, prepID, notes string) (*models.Prep, error) {
	prep, err := s.GetPrep(ctx, userID, prepID)
	if err != nil {
		return nil, err
	}

	clean := s.notes.Sanitize(notes)
	now := s.now().UTC()
	if err := s.prepRepo.UpdateNotes(ctx, prepID, clean, now); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: prep with ID '%s'", ErrPrepNotFound, prepID)
		}
		return nil, fmt.Errorf("failed to update notes of prep '%s': %w", prepID, err)
	}
	prep.Notes = clean
	prep.LastUpdated = now
	return prep, nil
}

// DeletePrep removes a prep and drops its cached meeting context.
func (s *prepService) DeletePrep(ctx context.Context, userID, prepID string) error {
	if _, err := s.GetPrep(ctx, userID, prepID); err != nil {
		return err
	}
	if err := s.prepRepo.Delete(ctx, prepID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: prep with ID '%s'", ErrPrepNotFound, prepID)
		}
		return fmt.Errorf("failed to delete prep '%s': %w", prepID, err)
	}
	if s.contexts != nil {
		s.contexts.Invalidate(ctx, prepID)
	}

	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditPrepDelete,
		TargetType: "PREP",
		TargetID:   prepID,
	})
	return nil
}

// normalizeLinkedInURL accepts http(s) URLs on linkedin.com pointing at a
// member profile (/in/...). A missing scheme is treated as https.
func normalizeLinkedInURL(raw string) (string, error) {
	const msg = "A valid LinkedIn profile URL is required"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid(msg)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", invalid(msg)
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return "", invalid(msg)
	}
	if !strings.HasPrefix(u.Path, "/in/") || len(strings.Trim(u.Path[len("/in/"):], "/")) == 0 {
		return "", invalid(msg)
	}
	u.Scheme = "https"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// monthStart is the first instant of t's calendar month in UTC.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
