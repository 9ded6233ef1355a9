package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/result"
)

type ResultRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewResultRepository(pool *pgxpool.Pool, log *slog.Logger) *ResultRepository {
	return &ResultRepository{
		pool: pool,
		log:  log.With("component", "result_repository"),
	}
}

const resultColumns = `r.id, r.student_id, s.sync_id, r.session, r.term, r.current_class,
	       r.subject, r.test_score, r.exam_score, r.teacher_comment, r.headteacher_comment,
	       r.sync_id, r.sync_status, r.last_modified, r.device_id`

func (r *ResultRepository) GetBySyncID(ctx context.Context, syncID uuid.UUID) (*result.Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM results r
		JOIN students s ON s.id = r.student_id
		WHERE r.sync_id = $1`

	res, err := r.scanResult(r.pool.QueryRow(ctx, query, syncID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, result.ErrNotFound
		}
		r.log.Error("failed to get result", "sync_id", syncID.String(), "error", err)
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

func (r *ResultRepository) Create(ctx context.Context, res *result.Result) error {
	const query = `
		INSERT INTO results
		       (student_id, session, term, current_class, subject, test_score,
		        exam_score, teacher_comment, headteacher_comment,
		        sync_id, sync_status, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		res.StudentID, res.Session, res.Term, res.CurrentClass, res.Subject,
		res.TestScore, res.ExamScore, res.TeacherComment, res.HeadteacherComment,
		res.SyncID, res.SyncStatus, res.DeviceID,
	).Scan(&res.ID, &res.LastModified)
	if err != nil {
		r.log.Error("failed to create result", "sync_id", res.SyncID.String(), "error", err)
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

func (r *ResultRepository) Update(ctx context.Context, res *result.Result) error {
	const query = `
		UPDATE results
		SET session = $1, term = $2, current_class = $3, subject = $4,
		    test_score = $5, exam_score = $6, teacher_comment = $7,
		    headteacher_comment = $8, sync_status = $9, device_id = $10,
		    last_modified = NOW()
		WHERE sync_id = $11
		RETURNING id, last_modified`

	err := r.pool.QueryRow(ctx, query,
		res.Session, res.Term, res.CurrentClass, res.Subject,
		res.TestScore, res.ExamScore, res.TeacherComment,
		res.HeadteacherComment, res.SyncStatus, res.DeviceID,
		res.SyncID,
	).Scan(&res.ID, &res.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result.ErrNotFound
		}
		r.log.Error("failed to update result", "sync_id", res.SyncID.String(), "error", err)
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

func (r *ResultRepository) ChangesSince(ctx context.Context, since time.Time) ([]result.Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM results r
		JOIN students s ON s.id = r.student_id
		WHERE r.last_modified > $1
		ORDER BY r.last_modified`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		r.log.Error("failed to list result changes", "error", err)
		return nil, fmt.Errorf("result changes: %w", err)
	}
	defer rows.Close()

	var out []result.Result
	for rows.Next() {
		res, err := r.scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *ResultRepository) scanResult(row pgx.Row) (*result.Result, error) {
	var res result.Result
	err := row.Scan(
		&res.ID, &res.StudentID, &res.StudentSyncID, &res.Session, &res.Term,
		&res.CurrentClass, &res.Subject, &res.TestScore, &res.ExamScore,
		&res.TeacherComment, &res.HeadteacherComment,
		&res.SyncID, &res.SyncStatus, &res.LastModified, &res.DeviceID,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
