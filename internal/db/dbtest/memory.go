// Package dbtest provides in-memory implementations of the db repositories
// for tests. Every repository is safe for concurrent use and supports error
// injection through its exported Err fields.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"prepme-backend/internal/db"
	"prepme-backend/internal/models"
)

// Users is an in-memory db.UserRepository.
type Users struct {
	mu    sync.Mutex
	users map[string]models.User

	GetErr  error
	LinkErr error
	SetErr  error
	// SubscriptionWrites counts successful SetSubscription calls.
	SubscriptionWrites int
}

var _ db.UserRepository = (*Users)(nil)

func NewUsers(users ...models.User) *Users {
	r := &Users{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *Users) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *Users) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return fmt.Errorf("user with ID '%s': %w", user.ID, db.ErrAlreadyExists)
	}
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *Users) FindByBillingCustomerID(_ context.Context, customerID string) (*models.User, error) {
	return r.find(func(u models.User) bool { return customerID != "" && u.BillingCustomerID == customerID })
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return email != "" && u.Email == email })
}

func (r *Users) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", db.ErrNotFound)
}

func (r *Users) LinkBillingCustomer(_ context.Context, userID, customerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LinkErr != nil {
		return "", r.LinkErr
	}
	u, ok := r.users[userID]
	if !ok {
		return "", fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	if u.BillingCustomerID != "" {
		return u.BillingCustomerID, nil
	}
	u.BillingCustomerID = customerID
	r.users[userID] = u
	return customerID, nil
}

func (r *Users) SetSubscription(_ context.Context, userID string, snapshot models.SubscriptionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SetErr != nil {
		return r.SetErr
	}
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	s := snapshot
	u.Subscription = &s
	r.users[userID] = u
	r.SubscriptionWrites++
	return nil
}

// Get returns a copy of the stored user, or nil.
func (r *Users) Get(userID string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	return cloneUser(u)
}

func cloneUser(u models.User) *models.User {
	if u.Subscription != nil {
		s := *u.Subscription
		u.Subscription = &s
	}
	return &u
}

// Preps is an in-memory db.PrepRepository.
type Preps struct {
	mu    sync.Mutex
	preps map[string]models.Prep
	seq   int

	CreateErr error
	CountErr  error
}

var _ db.PrepRepository = (*Preps)(nil)

func NewPreps(preps ...models.Prep) *Preps {
	r := &Preps{preps: make(map[string]models.Prep)}
	for _, p := range preps {
		r.preps[p.ID] = p
	}
	return r
}

func (r *Preps) Create(_ context.Context, prep *models.Prep) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return "", r.CreateErr
	}
	r.seq++
	id := fmt.Sprintf("prep_%d", r.seq)
	p := *prep
	p.ID = id
	r.preps[id] = p
	return id, nil
}

func (r *Preps) GetByID(_ context.Context, prepID string) (*models.Prep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.preps[prepID]
	if !ok {
		return nil, fmt.Errorf("prep with ID '%s' not found: %w", prepID, db.ErrNotFound)
	}
	return &p, nil
}

func (r *Preps) ListByUserID(_ context.Context, userID string, limit int) ([]*models.Prep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Prep
	for _, p := range r.preps {
		if p.UserID == userID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Preps) CountByUserIDSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CountErr != nil {
		return 0, r.CountErr
	}
	n := 0
	for _, p := range r.preps {
		if p.UserID == userID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *Preps) UpdateNotes(_ context.Context, prepID, notes string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.preps[prepID]
	if !ok {
		return fmt.Errorf("prep with ID '%s' not found: %w", prepID, db.ErrNotFound)
	}
	p.Notes = notes
	p.LastUpdated = at
	r.preps[prepID] = p
	return nil
}

func (r *Preps) Delete(_ context.Context, prepID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.preps[prepID]; !ok {
		return fmt.Errorf("prep with ID '%s' not found: %w", prepID, db.ErrNotFound)
	}
	delete(r.preps, prepID)
	return nil
}

// Prompts is an in-memory db.PromptRepository.
type Prompts struct {
	mu      sync.Mutex
	prompts map[string]models.SystemPrompt
	seq     int

	ActiveErr error
}

var _ db.PromptRepository = (*Prompts)(nil)

func NewPrompts(prompts ...models.SystemPrompt) *Prompts {
	r := &Prompts{prompts: make(map[string]models.SystemPrompt)}
	for _, p := range prompts {
		r.prompts[p.ID] = p
	}
	return r
}

func (r *Prompts) List(_ context.Context) ([]*models.SystemPrompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.SystemPrompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Prompts) GetByID(_ context.Context, promptID string) (*models.SystemPrompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[promptID]
	if !ok {
		return nil, fmt.Errorf("prompt with ID '%s' not found: %w", promptID, db.ErrNotFound)
	}
	return &p, nil
}

func (r *Prompts) GetActive(_ context.Context) (*models.SystemPrompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ActiveErr != nil {
		return nil, r.ActiveErr
	}
	for _, p := range r.prompts {
		if p.IsActive {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("no active prompt: %w", db.ErrNotFound)
}

func (r *Prompts) Create(_ context.Context, prompt *models.SystemPrompt) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("prompt_%d", r.seq)
	p := *prompt
	p.ID = id
	r.prompts[id] = p
	return id, nil
}

func (r *Prompts) Update(_ context.Context, prompt *models.SystemPrompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[prompt.ID]; !ok {
		return fmt.Errorf("prompt with ID '%s' not found: %w", prompt.ID, db.ErrNotFound)
	}
	r.prompts[prompt.ID] = *prompt
	return nil
}

func (r *Prompts) Delete(_ context.Context, promptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[promptID]; !ok {
		return fmt.Errorf("prompt with ID '%s' not found: %w", promptID, db.ErrNotFound)
	}
	delete(r.prompts, promptID)
	return nil
}

func (r *Prompts) Activate(_ context.Context, promptID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[promptID]; !ok {
		return fmt.Errorf("prompt with ID '%s' not found: %w", promptID, db.ErrNotFound)
	}
	for id, p := range r.prompts {
		want := id == promptID
		if p.IsActive != want {
			p.IsActive = want
			p.UpdatedAt = at
			r.prompts[id] = p
		}
	}
	return nil
}

// Audit is an in-memory db.AuditRepository.
type Audit struct {
	mu      sync.Mutex
	entries []models.AuditLog

	Err error
}

var _ db.AuditRepository = (*Audit)(nil)

func (r *Audit) Create(_ context.Context, logEntry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.entries = append(r.entries, logEntry)
	return nil
}

// Actions lists the recorded audit actions in order.
func (r *Audit) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// Entries returns a copy of the recorded entries.
func (r *Audit) Entries() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.entries...)
}

// BillingEvents is an in-memory db.BillingEventRepository.
type BillingEvents struct {
	mu     sync.Mutex
	events map[string]models.BillingEvent

	ExistsErr error
	RecordErr error
}

var _ db.BillingEventRepository = (*BillingEvents)(nil)

func NewBillingEvents() *BillingEvents {
	return &BillingEvents{events: make(map[string]models.BillingEvent)}
}

func (r *BillingEvents) Exists(_ context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ExistsErr != nil {
		return false, r.ExistsErr
	}
	_, ok := r.events[eventID]
	return ok, nil
}

func (r *BillingEvents) Record(_ context.Context, event models.BillingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RecordErr != nil {
		return r.RecordErr
	}
	if _, ok := r.events[event.ID]; !ok {
		r.events[event.ID] = event
	}
	return nil
}

// Get returns the recorded event and whether it exists.
func (r *BillingEvents) Get(eventID string) (models.BillingEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	return e, ok
}
