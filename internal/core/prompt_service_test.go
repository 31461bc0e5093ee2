package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prepme-backend/internal/db/dbtest"
	"prepme-backend/internal/models"
)

func TestCreatePromptStripsMarkupAndActivates(t *testing.T) {
	prompts := dbtest.NewPrompts(models.SystemPrompt{ID: "old", Name: "old", Content: "x", IsActive: true})
	audit := &dbtest.Audit{}
	svc := NewPromptService(prompts, NewAuditService(audit), zap.NewNop())

	p, err := svc.CreatePrompt(context.Background(), "admin", models.CreatePromptRequest{
		Name:     "<b>Tone</b>",
		Content:  `Don't use jargon <script>alert(1)</script>& be brief`,
		IsActive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Tone", p.Name)
	assert.Equal(t, "Don't use jargon & be brief", p.Content)
	assert.True(t, p.IsActive)

	active, err := prompts.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.ID, active.ID)
	old, _ := prompts.GetByID(context.Background(), "old")
	assert.False(t, old.IsActive)
	assert.Equal(t, []string{models.AuditPromptChange}, audit.Actions())
}

func TestCreatePromptRequiresContent(t *testing.T) {
	svc := NewPromptService(dbtest.NewPrompts(), nil, zap.NewNop())
	_, err := svc.CreatePrompt(context.Background(), "admin", models.CreatePromptRequest{Name: "n", Content: "<p></p>"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdatePrompt(t *testing.T) {
	prompts := dbtest.NewPrompts(
		models.SystemPrompt{ID: "a", Name: "A", Content: "a", IsActive: true},
		models.SystemPrompt{ID: "b", Name: "B", Content: "b"},
	)
	svc := NewPromptService(prompts, nil, zap.NewNop())
	ctx := context.Background()
	yes, content := true, "new content"

	p, err := svc.UpdatePrompt(ctx, "admin", "b", models.UpdatePromptRequest{Content: &content, IsActive: &yes})
	require.NoError(t, err)
	assert.Equal(t, "B", p.Name)
	assert.Equal(t, "new content", p.Content)
	assert.True(t, p.IsActive)

	a, _ := prompts.GetByID(ctx, "a")
	assert.False(t, a.IsActive)

	no := false
	p, err = svc.UpdatePrompt(ctx, "admin", "b", models.UpdatePromptRequest{IsActive: &no})
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	_, err = svc.UpdatePrompt(ctx, "admin", "missing", models.UpdatePromptRequest{})
	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestDeletePrompt(t *testing.T) {
	prompts := dbtest.NewPrompts(models.SystemPrompt{ID: "a"})
	svc := NewPromptService(prompts, nil, zap.NewNop())

	require.NoError(t, svc.DeletePrompt(context.Background(), "admin", "a"))
	assert.ErrorIs(t, svc.DeletePrompt(context.Background(), "admin", "a"), ErrPromptNotFound)

	list, err := svc.ListPrompts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
