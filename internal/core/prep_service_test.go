package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prepme-backend/internal/db/dbtest"
	"prepme-backend/internal/models"
)

var fixedNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type prepFixture struct {
	svc      *prepService
	preps    *dbtest.Preps
	users    *dbtest.Users
	analyzer *fakeAnalyzer
	cache    *mapCache
	audit    *dbtest.Audit
}

func newPrepFixture(users []models.User, preps ...models.Prep) *prepFixture {
	f := &prepFixture{
		preps:    dbtest.NewPreps(preps...),
		users:    dbtest.NewUsers(users...),
		analyzer: &fakeAnalyzer{profile: sampleProfile()},
		cache:    newMapCache(),
		audit:    &dbtest.Audit{},
	}
	contexts := NewContextService(f.preps, dbtest.NewPrompts(), f.cache, time.Minute, zap.NewNop())
	f.svc = NewPrepService(f.preps, f.users, f.analyzer, contexts, NewAuditService(f.audit), testPlans, zap.NewNop()).(*prepService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestCreatePrepStoresAnalysis(t *testing.T) {
	f := newPrepFixture([]models.User{{ID: "u1"}})

	prep, err := f.svc.CreatePrep(context.Background(), "u1", "linkedin.com/in/jane?trk=abc")
	require.NoError(t, err)

	assert.Equal(t, "prep_1", prep.ID)
	assert.Equal(t, "https://linkedin.com/in/jane", prep.LinkedInURL)
	assert.Equal(t, "Jane Doe", prep.ProfileName)
	assert.Equal(t, "", prep.Notes)
	assert.Equal(t, fixedNow, prep.CreatedAt)
	assert.Equal(t, fixedNow, prep.AnalyzedAt)

	stored, err := f.preps.GetByID(context.Background(), "prep_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
	require.NotNil(t, stored.ProfileData)
	assert.Equal(t, []string{models.AuditPrepCreate}, f.audit.Actions())
}

func TestCreatePrepRejectsNonProfileURLs(t *testing.T) {
	f := newPrepFixture([]models.User{{ID: "u1"}})

	for _, raw := range []string{"", "https://example.com/in/jane", "https://www.linkedin.com/company/acme", "ftp://linkedin.com/in/jane", "https://www.linkedin.com/in/"} {
		_, err := f.svc.CreatePrep(context.Background(), "u1", raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
	assert.Zero(t, f.analyzer.calls)
}

func TestCreatePrepEnforcesFreeMonthlyLimit(t *testing.T) {
	lastMonth := models.Prep{ID: "old", UserID: "u1", CreatedAt: time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)}
	f := newPrepFixture([]models.User{{ID: "u1"}}, lastMonth)

	_, err := f.svc.CreatePrep(context.Background(), "u1", "https://www.linkedin.com/in/first")
	require.NoError(t, err, "last month's prep does not count")

	_, err = f.svc.CreatePrep(context.Background(), "u1", "https://www.linkedin.com/in/second")
	assert.ErrorIs(t, err, ErrPrepLimitReached)
	assert.Equal(t, 1, f.analyzer.calls)
}

func TestCreatePrepUnlimitedWithActiveSubscription(t *testing.T) {
	sub := &models.SubscriptionSnapshot{ID: "sub_1", Status: "active", PriceID: "price_pro_monthly"}
	f := newPrepFixture([]models.User{{ID: "u1", Subscription: sub}})

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreatePrep(context.Background(), "u1", "https://www.linkedin.com/in/jane")
		require.NoError(t, err)
	}
}

func TestCreatePrepAnalysisFailure(t *testing.T) {
	f := newPrepFixture([]models.User{{ID: "u1"}})
	f.analyzer.err = errors.New("invalid response format from analysis service")

	_, err := f.svc.CreatePrep(context.Background(), "u1", "https://www.linkedin.com/in/jane")
	assert.ErrorIs(t, err, ErrUpstream)

	n, _ := f.preps.CountByUserIDSince(context.Background(), "u1", time.Time{})
	assert.Zero(t, n)
}

func TestPrepOwnership(t *testing.T) {
	f := newPrepFixture(nil, models.Prep{ID: "p1", UserID: "owner"})
	ctx := context.Background()

	_, err := f.svc.GetPrep(ctx, "intruder", "p1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateNotes(ctx, "intruder", "p1", "x")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.DeletePrep(ctx, "intruder", "p1"), ErrForbidden)

	_, err = f.svc.GetPrep(ctx, "owner", "missing")
	assert.ErrorIs(t, err, ErrPrepNotFound)
}

func TestUpdateNotesSanitizesHTML(t *testing.T) {
	f := newPrepFixture(nil, models.Prep{ID: "p1", UserID: "owner"})

	prep, err := f.svc.UpdateNotes(context.Background(), "owner", "p1", `<p>Ask about <b>sailing</b></p><script>alert(1)</script>`)
	require.NoError(t, err)

	assert.Equal(t, "<p>Ask about <b>sailing</b></p>", prep.Notes)
	assert.Equal(t, fixedNow, prep.LastUpdated)
	stored, _ := f.preps.GetByID(context.Background(), "p1")
	assert.Equal(t, prep.Notes, stored.Notes)
}

func TestDeletePrepInvalidatesContext(t *testing.T) {
	f := newPrepFixture(nil, models.Prep{ID: "p1", UserID: "owner"})
	require.NoError(t, f.cache.Set(context.Background(), contextCacheKey("p1"), "cached", time.Minute))

	require.NoError(t, f.svc.DeletePrep(context.Background(), "owner", "p1"))

	_, ok, _ := f.cache.Get(context.Background(), contextCacheKey("p1"))
	assert.False(t, ok)
	_, err := f.svc.GetPrep(context.Background(), "owner", "p1")
	assert.ErrorIs(t, err, ErrPrepNotFound)
	assert.Equal(t, []string{models.AuditPrepDelete}, f.audit.Actions())
}

func TestListPrepsNewestFirst(t *testing.T) {
	f := newPrepFixture(nil,
		models.Prep{ID: "a", UserID: "u1", CreatedAt: fixedNow.Add(-time.Hour)},
		models.Prep{ID: "b", UserID: "u1", CreatedAt: fixedNow},
		models.Prep{ID: "c", UserID: "u2", CreatedAt: fixedNow},
	)

	preps, err := f.svc.ListPreps(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, preps, 2)
	assert.Equal(t, "b", preps[0].ID)
	assert.Equal(t, "a", preps[1].ID)
}

func TestMonthStart(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), monthStart(time.Date(2024, 5, 1, 1, 0, 0, 0, berlin)))
}
