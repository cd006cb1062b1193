package literepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/sqlite"
	"github.com/google/uuid"
)

const issueColumns = `id, driver_id, order_id, type, message, status, created_at, resolved_at`

type IssueRepo struct {
	db *sql.DB
}

func NewIssueRepo(db *sql.DB) *IssueRepo {
	return &IssueRepo{db: db}
}

func (r *IssueRepo) Create(ctx context.Context, i *models.Issue) (err error) {
	const op = "IssueRepo.Create"
	defer observe(op, time.Now(), &err)

	_, err = TxorDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO driver_issues (id, driver_id, order_id, type, message, status, created_at, resolved_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)`,
		i.ID, i.DriverID, i.OrderID, i.Type.String(), i.Message, i.Status.String(), i.CreatedAt.UTC(), utc(i.ResolvedAt))
	if sqlite.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: referenced driver or order", types.ErrNotFound)
	}
	return err
}

func (r *IssueRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Issue, err error) {
	const op = "IssueRepo.Get"
	defer observe(op, time.Now(), &err)

	i, err := scanIssue(TxorDB(ctx, r.db).QueryRowContext(ctx, `SELECT `+issueColumns+` FROM driver_issues WHERE id = ?1`, id))
	if errors.Is(err, sql.ErrNoRows) {
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
		where = append(where, fmt.Sprintf("status = ?%d", len(args)))
	}
	if f.DriverID != nil {
		args = append(args, *f.DriverID)
		where = append(where, fmt.Sprintf("driver_id = ?%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	q := TxorDB(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM driver_issues `+cond, args...).Scan(&total); err != nil {
		return nil, models.Metadata{}, err
	}

	args = append(args, f.Limit(), f.Offset())
	query := fmt.Sprintf(`SELECT %s FROM driver_issues %s ORDER BY %s %s, id ASC LIMIT ?%d OFFSET ?%d`,
		issueColumns, cond, f.SortColumn(), f.SortDirection(), len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, models.Metadata{}, err
		}
		issues = append(issues, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Metadata{}, err
	}
	return issues, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (r *IssueRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.IssueStatus, resolvedAt *time.Time) (_ *models.Issue, err error) {
	const op = "IssueRepo.SetStatus"
	defer observe(op, time.Now(), &err)

	i, err := scanIssue(TxorDB(ctx, r.db).QueryRowContext(ctx,
		`UPDATE driver_issues SET status = ?2, resolved_at = ?3 WHERE id = ?1 RETURNING `+issueColumns,
		id, status.String(), utc(resolvedAt)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrIssueNotFound
	}
	return i, err
}

func scanIssue(row scanner) (*models.Issue, error) {
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

func utc(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
