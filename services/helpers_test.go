package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"civicsync/apperr"
	"civicsync/blob"
	"civicsync/models"
	"civicsync/store"

	"go.uber.org/zap"
)

var (
	citizen = models.Principal{ID: "c1", DisplayName: "Carla Citizen", Role: models.RoleCitizen}
	admin   = models.Principal{ID: "a1", DisplayName: "Ada Admin", Role: models.RoleAdmin}
	roadTech = models.Principal{
		ID: "t1", DisplayName: "Road Tech", Role: models.RoleTechnician,
		Categories: []models.IssueCategory{models.RoadTransportation},
	}
	waterTech = models.Principal{
		ID: "t2", DisplayName: "Water Tech", Role: models.RoleTechnician,
		Categories: []models.IssueCategory{models.WaterSupply},
	}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixedPicker int

func (p fixedPicker) Pick(n int) int { return min(int(p), n-1) }

type directory struct {
	principals []models.Principal
	err        error
}

func (d *directory) ListPrincipals(context.Context) ([]models.Principal, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.principals, nil
}

func (d *directory) GetPrincipal(_ context.Context, id string) (models.Principal, error) {
	for _, p := range d.principals {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Principal{}, apperr.NotFound("user %s not found", id)
}

// flakyKV fails Set calls whose key has failPrefix.
type flakyKV struct {
	store.KV
	failPrefix string
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.failPrefix != "" && strings.HasPrefix(key, f.failPrefix) {
		return errors.New("connection reset")
	}
	return f.KV.Set(ctx, key, value)
}

type harness struct {
	kv        *flakyKV
	clock     *fakeClock
	dir       *directory
	issues    *IssueStore
	notifier  *Notifier
	workflow  *Workflow
	analytics *Analytics
	photos    *blob.Memory
}

func newHarness(t *testing.T, principals ...models.Principal) *harness {
	t.Helper()
	if len(principals) == 0 {
		principals = []models.Principal{citizen, admin, roadTech, waterTech}
	}
	h := &harness{
		kv:     &flakyKV{KV: store.NewMemory()},
		clock:  newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		dir:    &directory{principals: principals},
		photos: blob.NewMemory("issues/"),
	}
	logger := zap.NewNop()
	h.issues = NewIssueStore(h.kv, h.clock, logger)
	h.notifier = NewNotifier(h.kv, h.dir, h.clock, logger)
	h.workflow = NewWorkflow(WorkflowDeps{
		Issues:     h.issues,
		Notifier:   h.notifier,
		Principals: h.dir,
		Picker:     fixedPicker(0),
		Photos:     h.photos,
		Clock:      h.clock,
		Logger:     logger,
	})
	h.analytics = NewAnalytics(h.issues, h.clock)
	return h
}

func pothole(category models.IssueCategory) NewIssue {
	return NewIssue{
		Title:       "Pothole on Main St",
		Description: "Deep pothole near the bus stop",
		Category:    category,
		Location:    "Main St & 3rd Ave",
		Priority:    models.PriorityHigh,
	}
}

func (h *harness) notifications(t *testing.T, recipient string) []models.Notification {
	t.Helper()
	n, err := h.notifier.ListForRecipient(context.Background(), recipient, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return n
}

func ptr[T any](v T) *T { return &v }
