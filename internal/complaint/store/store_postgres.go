package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sayit/internal/attachment"
	"sayit/internal/complaint"
	notifstore "sayit/internal/notification/store"
	id "sayit/pkg/domain"
	"sayit/pkg/platform/sentinel"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the complaints and responses tables when bootstrap mode is
// enabled. The notifications table is owned by the notification store.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS complaints (
			id              uuid PRIMARY KEY,
			tracking_id     text NOT NULL,
			title           text NOT NULL,
			description     text NOT NULL,
			category_id     uuid NOT NULL,
			agency_id       uuid NOT NULL,
			submission_type text NOT NULL,
			submitter_kind  text,
			submitter_id    uuid,
			status          text NOT NULL,
			priority        text NOT NULL,
			assigned_agent  uuid,
			attachments     jsonb NOT NULL DEFAULT '[]',
			resolved_at     timestamptz,
			closed_at       timestamptz,
			created_at      timestamptz NOT NULL,
			updated_at      timestamptz NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS complaints_tracking_id ON complaints (tracking_id);

		CREATE TABLE IF NOT EXISTS complaint_responses (
			id            uuid PRIMARY KEY,
			complaint_id  uuid NOT NULL REFERENCES complaints (id),
			author_kind   text NOT NULL,
			author_id     uuid,
			message       text NOT NULL,
			status_old    text,
			status_new    text,
			is_internal   boolean NOT NULL DEFAULT false,
			created_at    timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS complaint_responses_thread
			ON complaint_responses (complaint_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate complaints: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, c *complaint.Complaint) error {
	attachments, err := json.Marshal(c.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO complaints
			(id, tracking_id, title, description, category_id, agency_id,
			 submission_type, submitter_kind, submitter_id, status, priority,
			 assigned_agent, attachments, resolved_at, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, uuid.UUID(c.ID), c.TrackingID, c.Title, c.Description,
		uuid.UUID(c.CategoryID), uuid.UUID(c.AgencyID),
		string(c.SubmissionType), nullableText(c.SubmitterKind.String()), nullableUUID(uuid.UUID(c.SubmitterID)),
		c.Status.String(), string(c.Priority), nullableUUID(uuid.UUID(c.AssignedAgentID)),
		attachments, nullableTime(c.ResolvedAt), nullableTime(c.ClosedAt), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, complaintID id.ComplaintID) (*complaint.Complaint, error) {
	row := s.pool.QueryRow(ctx, selectComplaintSQL+` WHERE id = $1`, uuid.UUID(complaintID))
	return scanComplaint(row)
}

func (s *PostgresStore) FindByTrackingID(ctx context.Context, trackingID string) (*complaint.Complaint, error) {
	row := s.pool.QueryRow(ctx, selectComplaintSQL+` WHERE tracking_id = $1`, trackingID)
	return scanComplaint(row)
}

// ApplyTransition runs the three-way write in one transaction: complaint
// update, audit response, submitter notification. Any failure rolls back the
// whole group.
func (s *PostgresStore) ApplyTransition(ctx context.Context, w TransitionWrite) error {
	if len(w.Responses) == 0 {
		return sentinel.ErrInvalidState
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	if w.Complaint != nil {
		if err := updateComplaintTx(ctx, tx, w.Complaint); err != nil {
			return err
		}
	}
	for _, r := range w.Responses {
		if err := insertResponseTx(ctx, tx, r); err != nil {
			return err
		}
	}
	if w.Notification != nil {
		if err := notifstore.InsertNotificationTx(ctx, tx, w.Notification); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func updateComplaintTx(ctx context.Context, tx pgx.Tx, c *complaint.Complaint) error {
	tag, err := tx.Exec(ctx, `
		UPDATE complaints SET
			status = $2, priority = $3, assigned_agent = $4,
			resolved_at = $5, closed_at = $6, updated_at = $7
		WHERE id = $1
	`, uuid.UUID(c.ID), c.Status.String(), string(c.Priority),
		nullableUUID(uuid.UUID(c.AssignedAgentID)),
		nullableTime(c.ResolvedAt), nullableTime(c.ClosedAt), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func insertResponseTx(ctx context.Context, tx pgx.Tx, r *complaint.Response) error {
	var statusOld, statusNew *string
	if r.StatusChange != nil {
		old, new_ := r.StatusChange.Old.String(), r.StatusChange.New.String()
		statusOld, statusNew = &old, &new_
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO complaint_responses
			(id, complaint_id, author_kind, author_id, message, status_old, status_new, is_internal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(r.ID), uuid.UUID(r.ComplaintID), r.AuthorKind.String(),
		nullableUUID(uuid.UUID(r.AuthorID)), r.Message, statusOld, statusNew,
		r.IsInternal, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListResponses(ctx context.Context, complaintID id.ComplaintID, includeInternal bool) ([]complaint.Response, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, complaint_id, author_kind, author_id, message, status_old, status_new, is_internal, created_at
		FROM complaint_responses
		WHERE complaint_id = $1 AND (is_internal = false OR $2)
		ORDER BY created_at
	`, uuid.UUID(complaintID), includeInternal)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []complaint.Response
	for rows.Next() {
		var (
			r                    complaint.Response
			responseUUID         uuid.UUID
			complaintUUID        uuid.UUID
			authorKind           string
			authorUUID           *uuid.UUID
			statusOld, statusNew *string
		)
		if err := rows.Scan(&responseUUID, &complaintUUID, &authorKind, &authorUUID,
			&r.Message, &statusOld, &statusNew, &r.IsInternal, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.ID = id.ResponseID(responseUUID)
		r.ComplaintID = id.ComplaintID(complaintUUID)
		r.AuthorKind = id.ActorKind(authorKind)
		if authorUUID != nil {
			r.AuthorID = id.ActorID(*authorUUID)
		}
		if statusOld != nil && statusNew != nil {
			r.StatusChange = &complaint.StatusChange{
				Old: complaint.Status(*statusOld),
				New: complaint.Status(*statusNew),
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const selectComplaintSQL = `
	SELECT id, tracking_id, title, description, category_id, agency_id,
	       submission_type, submitter_kind, submitter_id, status, priority,
	       assigned_agent, attachments, resolved_at, closed_at, created_at, updated_at
	FROM complaints`

func scanComplaint(row pgx.Row) (*complaint.Complaint, error) {
	var (
		c              complaint.Complaint
		complaintUUID  uuid.UUID
		categoryUUID   uuid.UUID
		agencyUUID     uuid.UUID
		submissionType string
		submitterKind  *string
		submitterUUID  *uuid.UUID
		status         string
		priority       string
		assignedUUID   *uuid.UUID
		attachments    []byte
		resolvedAt     *time.Time
		closedAt       *time.Time
	)
	err := row.Scan(&complaintUUID, &c.TrackingID, &c.Title, &c.Description,
		&categoryUUID, &agencyUUID, &submissionType, &submitterKind, &submitterUUID,
		&status, &priority, &assignedUUID, &attachments, &resolvedAt, &closedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan complaint: %w", err)
	}

	c.ID = id.ComplaintID(complaintUUID)
	c.CategoryID = id.CategoryID(categoryUUID)
	c.AgencyID = id.AgencyID(agencyUUID)
	c.SubmissionType = complaint.SubmissionType(submissionType)
	if submitterKind != nil {
		c.SubmitterKind = id.ActorKind(*submitterKind)
	}
	if submitterUUID != nil {
		c.SubmitterID = id.ActorID(*submitterUUID)
	}
	c.Status = complaint.Status(status)
	c.Priority = complaint.Priority(priority)
	if assignedUUID != nil {
		c.AssignedAgentID = id.ActorID(*assignedUUID)
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &c.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	if c.Attachments == nil {
		c.Attachments = []attachment.Metadata{}
	}
	if resolvedAt != nil {
		c.ResolvedAt = *resolvedAt
	}
	if closedAt != nil {
		c.ClosedAt = *closedAt
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
