package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const issueColumns = `id, driver_id, order_id, type, message, status, created_at, resolved_at`

type IssueRepo struct {
	db DB
}

func NewIssueRepo(db DB) *IssueRepo {
	return &IssueRepo{db: db}
}

func (r *IssueRepo) Create(ctx context.Context, i *models.Issue) (err error) {
	const op = "IssueRepo.Create"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO driver_issues (id, driver_id, order_id, type, message, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		i.ID, i.DriverID, i.OrderID, i.Type.String(), i.Message, i.Status.String(), i.CreatedAt, i.ResolvedAt)
	if postgres.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: referenced driver or order", types.ErrNotFound)
	}
	return err
}

func (r *IssueRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Issue, err error) {
	const op = "IssueRepo.Get"
	defer observe(op, time.Now(), &err)

	i, err := scanIssue(TxorDB(ctx, r.db).QueryRow(ctx, `SELECT `+issueColumns+` FROM driver_issues WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrIssueNotFound
	}
	return i, err
}

func (r *IssueRepo) List(ctx context.Context, f models.IssueFilter) (_ []models.Issue, _ models.Metadata, err error) {
	const op = "IssueRepo.List"
	defer observe(op, time.Now(), &err)

	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, f.Status.String())
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.DriverID != nil {
		args = append(args, *f.DriverID)
		where = append(where, fmt.Sprintf("driver_id = $%d", len(args)))
	}

	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	args = append(args, f.Limit(), f.Offset())
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s
		FROM driver_issues
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d`,
		issueColumns, cond, f.SortColumn(), f.SortDirection(), len(args)-1, len(args))

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	total := 0
	issues := make([]models.Issue, 0, f.Limit())
	for rows.Next() {
		var (
			i        models.Issue
			kind, st string
		)
		if err := rows.Scan(&total, &i.ID, &i.DriverID, &i.OrderID, &kind, &i.Message, &st, &i.CreatedAt, &i.ResolvedAt); err != nil {
			return nil, models.Metadata{}, err
		}
		i.Type, i.Status = types.IssueType(kind), types.IssueStatus(st)
		issues = append(issues, i)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Metadata{}, err
	}

	return issues, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (r *IssueRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.IssueStatus, resolvedAt *time.Time) (_ *models.Issue, err error) {
	const op = "IssueRepo.SetStatus"
	defer observe(op, time.Now(), &err)

	query := `UPDATE driver_issues SET status = $2, resolved_at = $3 WHERE id = $1 RETURNING ` + issueColumns
	i, err := scanIssue(TxorDB(ctx, r.db).QueryRow(ctx, query, id, status.String(), resolvedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrIssueNotFound
	}
	return i, err
}

func scanIssue(row pgx.Row) (*models.Issue, error) {
	var (
		i        models.Issue
		kind, st string
	)
	if err := row.Scan(&i.ID, &i.DriverID, &i.OrderID, &kind, &i.Message, &st, &i.CreatedAt, &i.ResolvedAt); err != nil {
		return nil, err
	}
	i.Type, i.Status = types.IssueType(kind), types.IssueStatus(st)
	return &i, nil
}
