package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepme-backend/internal/db"
	"prepme-backend/internal/metrics"
	"prepme-backend/internal/models"
)

const contextCacheName = "meeting_context"

// contextService implements the ContextService interface.
type contextService struct {
	prepRepo   db.PrepRepository
	promptRepo db.PromptRepository
	cache      Cache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewContextService creates a new ContextService instance. The profile part
// of a context is cached for ttl; the active system prompt is read on every
// call so prompt changes apply immediately.
func NewContextService(pr db.PrepRepository, promptRepo db.PromptRepository, cache Cache, ttl time.Duration, logger *zap.Logger) ContextService {
	return &contextService{
		prepRepo:   pr,
		promptRepo: promptRepo,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

func contextCacheKey(meetingID string) string { return "context:" + meetingID }

// BuildMeetingContext returns the instruction block for the prep identified
// by meetingID.
func (s *contextService) BuildMeetingContext(ctx context.Context, meetingID string) (string, error) {
	if strings.TrimSpace(meetingID) == "" {
		return "", invalid("Meeting ID is required")
	}

	base, err := s.profileContext(ctx, meetingID)
	if err != nil {
		return "", err
	}

	prompt, err := s.promptRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return base, nil
		}
		// The prompt is an addition; a failed read still yields the base context.
		s.logger.Warn("Failed to load active system prompt", zap.Error(err))
		return base, nil
	}
	if strings.TrimSpace(prompt.Content) == "" {
		return base, nil
	}
	return base + "\nAdditional Instructions:\n" + prompt.Content + "\n", nil
}

func (s *contextService) profileContext(ctx context.Context, meetingID string) (string, error) {
	key := contextCacheKey(meetingID)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		metrics.IncCacheRequest(contextCacheName, "hit")
		return cached, nil
	} else if err != nil {
		s.logger.Warn("Context cache read failed", zap.String("meetingID", meetingID), zap.Error(err))
	}
	metrics.IncCacheRequest(contextCacheName, "miss")

	prep, err := s.prepRepo.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: meeting '%s'", ErrPrepNotFound, meetingID)
		}
		return "", fmt.Errorf("failed to get prep '%s' for context: %w", meetingID, err)
	}
	if prep.ProfileData == nil || prep.ProfileData.PersonalInfo == nil {
		return "", fmt.Errorf("%w: meeting '%s'", ErrProfileDataMissing, meetingID)
	}

	text := renderContext(prep.ProfileData)
	if err := s.cache.Set(ctx, key, text, s.ttl); err != nil {
		s.logger.Warn("Context cache write failed", zap.String("meetingID", meetingID), zap.Error(err))
	}
	return text, nil
}

// Invalidate drops the cached context of a meeting.
func (s *contextService) Invalidate(ctx context.Context, meetingID string) {
	if err := s.cache.Delete(ctx, contextCacheKey(meetingID)); err != nil {
		s.logger.Warn("Context cache delete failed", zap.String("meetingID", meetingID), zap.Error(err))
	}
}

func renderContext(p *models.ProfileData) string {
	info := p.PersonalInfo
	sec := p.Sections
	var b strings.Builder

	fmt.Fprintf(&b, "\nYou are an AI assistant helping prepare for a meeting with %s.\n", info.Name)
	b.WriteString("Here is the key information about them:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", info.Name)
	fmt.Fprintf(&b, "Current Role: %s\n", info.Title)
	fmt.Fprintf(&b, "Location: %s\n\n", info.Location)

	b.WriteString("Company Information:\n")
	fmt.Fprintf(&b, "- Company: %s\n", sec.CompanyInfo.Name)
	fmt.Fprintf(&b, "- Industry: %s\n", sec.CompanyInfo.Industry)
	fmt.Fprintf(&b, "- Company Size: %s\n", sec.CompanyInfo.Size)
	fmt.Fprintf(&b, "- Key Focus Areas: %s\n", sec.CompanyInfo.KeyFocusAreas)
	fmt.Fprintf(&b, "- Recent Initiatives: %s\n\n", sec.CompanyInfo.DigitalInitiatives)

	b.WriteString("Communication Style:\n")
	fmt.Fprintf(&b, "- Preferred Style: %s\n", sec.CommunicationStyle.PreferredStyle)
	fmt.Fprintf(&b, "- Best Approach: %s\n", sec.CommunicationStyle.BestApproach)
	fmt.Fprintf(&b, "- Key Traits: %s\n", sec.CommunicationStyle.KeyTraits)
	fmt.Fprintf(&b, "- Things to Avoid: %s\n\n", sec.CommunicationStyle.Avoid)

	b.WriteString("Career History:\n")
	for _, e := range sec.CareerHistory {
		fmt.Fprintf(&b, "- %s (%s): %s\n", e.Title, e.Period, e.Description)
	}
	fmt.Fprintf(&b, "\nPersonal Interests: %s\n\n", strings.Join(sec.PersonalInterests, ", "))

	b.WriteString("Recent News:\n")
	for _, n := range sec.RecentNews {
		fmt.Fprintf(&b, "- %s (%s): %s\n", n.Title, n.Date, n.Description)
	}

	b.WriteString("\nConversation Starters:\n")
	for _, c := range sec.ConversationStarters {
		fmt.Fprintf(&b, "- %s: %s\n", c.Title, c.Description)
	}

	b.WriteString("\nInstructions:\n")
	fmt.Fprintf(&b, "1. You are a helpful AI assistant preparing them for a meeting with %s\n", info.Name)
	b.WriteString("2. Use the above information to provide relevant, contextual responses\n")
	b.WriteString("3. Help them prepare for the meeting by suggesting talking points and conversation starters\n")
	b.WriteString("4. Share insights about the person's background, company, and industry when relevant\n")
	b.WriteString("5. Maintain a professional and helpful tone while being conversational\n\n")

	b.WriteString("Remember to:\n")
	b.WriteString("- Be specific and reference actual details from their profile\n")
	b.WriteString("- Suggest relevant conversation topics based on their interests and background\n")
	b.WriteString("- Offer meeting preparation advice considering their communication style\n")
	b.WriteString("- Share insights about their company and industry when appropriate\n")
	return b.String()
}
