package core

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"prepme-backend/internal/db"
	"prepme-backend/internal/models"
)

// promptService implements the PromptService interface. Callers are expected
// to have checked that the user is an admin.
type promptService struct {
	promptRepo db.PromptRepository
	audit      AuditService
	policy     *bluemonday.Policy
	logger     *zap.Logger
	now        func() time.Time
}

// NewPromptService creates a new PromptService instance.
func NewPromptService(pr db.PromptRepository, as AuditService, logger *zap.Logger) PromptService {
	return &promptService{
		promptRepo: pr,
		audit:      as,
		policy:     bluemonday.StrictPolicy(),
		logger:     logger,
		now:        time.Now,
	}
}

// plain strips every tag. Prompts are plain text, so the entities the policy
// escapes are turned back into characters.
func (s *promptService) plain(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

func (s *promptService) ListPrompts(ctx context.Context) ([]*models.SystemPrompt, error) {
	prompts, err := s.promptRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list system prompts: %w", err)
	}
	return prompts, nil
}

// CreatePrompt stores a new prompt. When it is created active, every other
// prompt is deactivated.
func (s *promptService) CreatePrompt(ctx context.Context, userID string, req models.CreatePromptRequest) (*models.SystemPrompt, error) {
	name, content := s.plain(req.Name), s.plain(req.Content)
	if name == "" || content == "" {
		return nil, invalid("Prompt name and content are required")
	}

	now := s.now().UTC()
	prompt := &models.SystemPrompt{
		Name:      name,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.promptRepo.Create(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to create system prompt: %w", err)
	}
	prompt.ID = id

	if req.IsActive {
		if err := s.promptRepo.Activate(ctx, id, now); err != nil {
			return nil, fmt.Errorf("failed to activate system prompt '%s': %w", id, err)
		}
		prompt.IsActive = true
	}

	s.auditChange(ctx, userID, id, "create")
	return prompt, nil
}

// UpdatePrompt applies the provided fields. Setting isActive to true
// deactivates every other prompt.
func (s *promptService) UpdatePrompt(ctx context.Context, userID, promptID string, req models.UpdatePromptRequest) (*models.SystemPrompt, error) {
	prompt, err := s.promptRepo.GetByID(ctx, promptID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: prompt with ID '%s'", ErrPromptNotFound, promptID)
		}
		return nil, fmt.Errorf("failed to get system prompt '%s': %w", promptID, err)
	}

	if req.Name != nil {
		if prompt.Name = s.plain(*req.Name); prompt.Name == "" {
			return nil, invalid("Prompt name must not be empty")
		}
	}
	if req.Content != nil {
		if prompt.Content = s.plain(*req.Content); prompt.Content == "" {
			return nil, invalid("Prompt content must not be empty")
		}
	}
	now := s.now().UTC()
	prompt.UpdatedAt = now

	activate := req.IsActive != nil && *req.IsActive && !prompt.IsActive
	if req.IsActive != nil && !*req.IsActive {
		prompt.IsActive = false
	}

	if err := s.promptRepo.Update(ctx, prompt); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: prompt with ID '%s'", ErrPromptNotFound, promptID)
		}
		return nil, fmt.Errorf("failed to update system prompt '%s': %w", promptID, err)
	}
	if activate {
		if err := s.promptRepo.Activate(ctx, promptID, now); err != nil {
			return nil, fmt.Errorf("failed to activate system prompt '%s': %w", promptID, err)
		}
		prompt.IsActive = true
	}

	s.auditChange(ctx, userID, promptID, "update")
	return prompt, nil
}

func (s *promptService) DeletePrompt(ctx context.Context, userID, promptID string) error {
	if err := s.promptRepo.Delete(ctx, promptID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: prompt with ID '%s'", ErrPromptNotFound, promptID)
		}
		return fmt.Errorf("failed to delete system prompt '%s': %w", promptID, err)
	}
	s.auditChange(ctx, userID, promptID, "delete")
	return nil
}

func (s *promptService) auditChange(ctx context.Context, userID, promptID, op string) {
	recordAudit(ctx, s.audit, s.logger, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditPromptChange,
		TargetType: "SYSTEM_PROMPT",
		TargetID:   promptID,
		Details:    map[string]interface{}{"operation": op},
	})
}
