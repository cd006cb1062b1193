package issue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/google/uuid"
)

// maximum stored length of an issue message
const maxMessageLen = 2000

type IssueService struct {
	repo      IssueRepo
	orders    OrderGetter
	drivers   DriverGetter
	publisher Publisher
	now       func() time.Time
	logger    logger.Logger
}

func NewIssueService(repo IssueRepo, orders OrderGetter, drivers DriverGetter, publisher Publisher, logger logger.Logger) *IssueService {
	return &IssueService{
		repo:      repo,
		orders:    orders,
		drivers:   drivers,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// Create records an OPEN issue reported by a driver.
func (s *IssueService) Create(ctx context.Context, in models.CreateIssueInput) (*models.Issue, error) {
	ctx = wrap.WithAction(ctx, "create_issue")

	issueType := types.IssueType(strings.ToUpper(strings.TrimSpace(in.Type)))
	if !issueType.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %q", types.ErrInvalidIssueType, in.Type))
	}

	if !models.IdentityFromContext(ctx).CanActAs(in.DriverID) {
		return nil, wrap.Error(ctx, types.ErrNotSelf)
	}

	var message *string
	if in.Message != nil {
		m := strings.TrimSpace(*in.Message)
		if len(m) > maxMessageLen {
			return nil, wrap.Error(ctx, types.Validation("message", fmt.Sprintf("must not be more than %d bytes long", maxMessageLen)))
		}
		if m != "" {
			message = &m
		}
	}

	if _, err := s.drivers.Get(ctx, in.DriverID); err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if in.OrderID != nil {
		ctx = wrap.WithOrderID(ctx, in.OrderID.String())
		if _, err := s.orders.Get(ctx, *in.OrderID); err != nil {
			return nil, wrap.Error(ctx, err)
		}
	}

	issue := &models.Issue{
		ID:        uuid.New(),
		DriverID:  in.DriverID,
		OrderID:   in.OrderID,
		Type:      issueType,
		Message:   message,
		Status:    types.IssueOpen,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create issue: %w", err))
	}

	metrics.IssuesReportedTotal.WithLabelValues(issue.Type.String()).Inc()
	s.logger.Info(ctx, "issue reported", "issue_id", issue.ID.String(), "type", issue.Type.String())

	s.publish(ctx, types.EventIssueReported, issue, "")
	return issue, nil
}

func (s *IssueService) Get(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	ctx = wrap.WithAction(ctx, "get_issue")

	issue, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !models.IdentityFromContext(ctx).CanActAs(issue.DriverID) {
		return nil, wrap.Error(ctx, types.ErrNotSelf)
	}
	return issue, nil
}

func (s *IssueService) List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, models.Metadata, error) {
	ctx = wrap.WithAction(ctx, "list_issues")

	issues, meta, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, err)
	}
	return issues, meta, nil
}

// SetStatus resolves or reopens an issue. resolvedAt is set on RESOLVED and
// cleared on OPEN. Setting the current status again is a no-op.
func (s *IssueService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.Issue, error) {
	ctx = wrap.WithAction(ctx, "set_issue_status")

	next := types.IssueStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !next.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %q", types.ErrInvalidIssueStatus, status))
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if current.Status == next {
		return current, nil
	}

	var resolvedAt *time.Time
	if next == types.IssueResolved {
		now := s.now().UTC()
		resolvedAt = &now
	}

	updated, err := s.repo.SetStatus(ctx, id, next, resolvedAt)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.logger.Info(ctx, "issue status changed", "issue_id", id.String(), "from", current.Status.String(), "to", updated.Status.String())

	s.publish(ctx, types.EventIssueStatus, updated, current.Status.String())
	return updated, nil
}

// Resolve is SetStatus(RESOLVED).
func (s *IssueService) Resolve(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	return s.SetStatus(ctx, id, types.IssueResolved.String())
}

func (s *IssueService) publish(ctx context.Context, t types.EventType, issue *models.Issue, old string) {
	if s.publisher == nil {
		return
	}

	event := models.NewEvent(t, issue.ID, s.now())
	event.Status = issue.Status.String()
	event.OldStatus = old
	event.DriverID = &issue.DriverID
	event.RequestID = wrap.FromContext(ctx).RequestID

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(wrap.WithAction(ctx, types.ActionEventPublishFailed), "failed to publish issue event", "error", err.Error())
	}
}
