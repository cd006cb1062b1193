package issue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	"github.com/google/uuid"
)

type memIssues struct {
	issues map[uuid.UUID]models.Issue
}

func (r *memIssues) Create(ctx context.Context, i *models.Issue) error {
	r.issues[i.ID] = *i
	return nil
}

func (r *memIssues) Get(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	i, ok := r.issues[id]
	if !ok {
		return nil, types.ErrIssueNotFound
	}
	return &i, nil
}

func (r *memIssues) List(ctx context.Context, f models.IssueFilter) ([]models.Issue, models.Metadata, error) {
	var out []models.Issue
	for _, i := range r.issues {
		if f.Status == nil || i.Status == *f.Status {
			out = append(out, i)
		}
	}
	return out, models.CalculateMetadata(len(out), 1, 20), nil
}

func (r *memIssues) SetStatus(ctx context.Context, id uuid.UUID, status types.IssueStatus, resolvedAt *time.Time) (*models.Issue, error) {
	i, ok := r.issues[id]
	if !ok {
		return nil, types.ErrIssueNotFound
	}
	i.Status = status
	i.ResolvedAt = resolvedAt
	r.issues[id] = i
	return &i, nil
}

type knownOrders map[uuid.UUID]bool

func (k knownOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if !k[id] {
		return nil, types.ErrOrderNotFound
	}
	return &models.Order{ID: id}, nil
}

type knownDrivers map[uuid.UUID]bool

func (k knownDrivers) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	if !k[id] {
		return nil, types.ErrDriverNotFound
	}
	return &models.Driver{ID: id}, nil
}

type fixture struct {
	svc    *IssueService
	repo   *memIssues
	driver uuid.UUID
	order  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		repo:   &memIssues{issues: map[uuid.UUID]models.Issue{}},
		driver: uuid.New(),
		order:  uuid.New(),
	}
	f.svc = NewIssueService(f.repo, knownOrders{f.order: true}, knownDrivers{f.driver: true}, nil, logger.Nop())
	return f
}

func (f *fixture) driverCtx() context.Context {
	return models.WithIdentity(context.Background(), &models.Identity{ID: f.driver, Role: types.RoleDriver})
}

func TestCreate(t *testing.T) {
	f := newFixture()
	msg := "  nobody at the door  "

	issue, err := f.svc.Create(f.driverCtx(), models.CreateIssueInput{
		DriverID: f.driver,
		Type:     "customer_no_response",
		Message:  &msg,
		OrderID:  &f.order,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if issue.Status != types.IssueOpen || issue.ResolvedAt != nil {
		t.Fatalf("new issue must be OPEN, got %+v", issue)
	}
	if issue.Type != types.IssueCustomerNoResponse || *issue.Message != "nobody at the door" {
		t.Fatalf("unexpected issue %+v", issue)
	}
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture()
	unknownOrder := uuid.New()
	long := strings.Repeat("x", maxMessageLen+1)

	tests := []struct {
		name string
		ctx  context.Context
		in   models.CreateIssueInput
		want error
	}{
		{"unknown type", f.driverCtx(), models.CreateIssueInput{DriverID: f.driver, Type: "UNKNOWN"}, types.ErrInvalidIssueType},
		{"empty type", f.driverCtx(), models.CreateIssueInput{DriverID: f.driver}, types.ErrInvalidIssueType},
		{"missing order", f.driverCtx(), models.CreateIssueInput{DriverID: f.driver, Type: "OTHER", OrderID: &unknownOrder}, types.ErrNotFound},
		{"unknown driver", context.Background(), models.CreateIssueInput{DriverID: uuid.New(), Type: "OTHER"}, types.ErrNotFound},
		{"other driver", f.driverCtx(), models.CreateIssueInput{DriverID: uuid.New(), Type: "OTHER"}, types.ErrForbidden},
		{"long message", f.driverCtx(), models.CreateIssueInput{DriverID: f.driver, Type: "OTHER", Message: &long}, types.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(tt.ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(f.repo.issues) != 0 {
		t.Fatalf("rejected issues must not be stored")
	}
}

func TestResolveAndReopen(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(f.driverCtx(), models.CreateIssueInput{DriverID: f.driver, Type: "ACCIDENT"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := f.svc.Resolve(context.Background(), issue.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != types.IssueResolved || resolved.ResolvedAt == nil {
		t.Fatalf("resolve must set resolvedAt, got %+v", resolved)
	}

	again, err := f.svc.SetStatus(context.Background(), issue.ID, "RESOLVED")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if !again.ResolvedAt.Equal(*resolved.ResolvedAt) {
		t.Fatalf("resolving twice must keep the first resolvedAt")
	}

	reopened, err := f.svc.SetStatus(context.Background(), issue.ID, "open")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != types.IssueOpen || reopened.ResolvedAt != nil {
		t.Fatalf("reopen must clear resolvedAt, got %+v", reopened)
	}
}

func TestSetStatus_Invalid(t *testing.T) {
	f := newFixture()
	issue, err := f.svc.Create(f.driverCtx(), models.CreateIssueInput{DriverID: f.driver, Type: "OTHER"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, st := range []string{"IN_PROGRESS", "", "CLOSED"} {
		if _, err := f.svc.SetStatus(context.Background(), issue.ID, st); !errors.Is(err, types.ErrInvalidIssueStatus) {
			t.Fatalf("%q: expected invalid issue status, got %v", st, err)
		}
	}
	if _, err := f.svc.SetStatus(context.Background(), uuid.New(), "RESOLVED"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
