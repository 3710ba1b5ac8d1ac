package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"ticket-transfer-service/backend/internal/transfer/domain"
)

const transferColumns = `
	id, ticket_id, sender_id, recipient_id, recipient_email, kind, price,
	status, code_hash, code_expires_at, verified, created_at, updated_at, completed_at
`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a transfer repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the transfer for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	q := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return scanTransfer(r.db.QueryRowContext(ctx, q, id))
}

// GetPendingByTicket returns the PENDING transfer for the ticket, or nil when
// none exists. At most one can exist; a partial unique index enforces that.
func (r *PostgresRepository) GetPendingByTicket(ctx context.Context, ticketID string) (*domain.Transfer, error) {
	q := `SELECT ` + transferColumns + ` FROM transfers WHERE ticket_id = $1 AND status = 'PENDING'`
	return scanTransfer(r.db.QueryRowContext(ctx, q, ticketID))
}

// ListByParticipant returns the party's transfers, newest first. Received
// matches the resolved recipient id, or the contact email when unresolved.
func (r *PostgresRepository) ListByParticipant(ctx context.Context, partyID, partyEmail string, p Participation) ([]*domain.Transfer, error) {
	var where string
	switch p {
	case ParticipationSent:
		where = `sender_id = $1`
	case ParticipationReceived:
		where = `(recipient_id = $1 OR (recipient_id IS NULL AND recipient_email = $2))`
	default:
		where = `(sender_id = $1 OR recipient_id = $1 OR (recipient_id IS NULL AND recipient_email = $2))`
	}
	q := `SELECT ` + transferColumns + ` FROM transfers WHERE ` + where + ` ORDER BY created_at DESC`

	var rows *sql.Rows
	var err error
	if p == ParticipationSent {
		rows, err = r.db.QueryContext(ctx, q, partyID)
	} else {
		rows, err = r.db.QueryContext(ctx, q, partyID, partyEmail)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transfer
	for rows.Next() {
		t, err := scanTransferRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create persists a new transfer. The transfer must have ID and Status set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Transfer) error {
	const q = `
		INSERT INTO transfers (
			id, ticket_id, sender_id, recipient_id, recipient_email, kind, price,
			status, code_hash, code_expires_at, verified, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.TicketID, t.SenderID,
		nullString(t.RecipientID), nullString(t.RecipientEmail),
		string(t.Kind), nullDecimal(t.Price),
		string(t.Status), nullString(t.CodeHash), nullTime(t.CodeExpiresAt),
		t.Verified, t.CreatedAt, t.UpdatedAt, nullTime(t.CompletedAt),
	)
	if isUniqueViolation(err) {
		// The partial unique index on pending transfers caught a racing create.
		return fmt.Errorf("%w: a pending transfer already exists for ticket %s", domain.ErrConflict, t.TicketID)
	}
	return err
}

// Accept performs the acceptance transition and the ownership move in one
// database transaction: a conditional status update (PENDING -> ACCEPTED)
// that also resolves the recipient and stamps completed_at, then the ticket
// owner update. Zero rows on the conditional update means a concurrent
// transition won; both writes roll back and ErrConflict is returned.
func (r *PostgresRepository) Accept(ctx context.Context, id, recipientID string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const updateTransfer = `
		UPDATE transfers
		SET status = 'ACCEPTED', recipient_id = $2, updated_at = $3, completed_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	res, err := tx.ExecContext(ctx, updateTransfer, id, recipientID, at)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: transfer %s is no longer pending", domain.ErrConflict, id)
	}

	const updateTicket = `
		UPDATE tickets SET owner_id = $2, updated_at = $3
		WHERE id = (SELECT ticket_id FROM transfers WHERE id = $1)
	`
	if _, err := tx.ExecContext(ctx, updateTicket, id, recipientID, at); err != nil {
		return fmt.Errorf("update ticket owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateStatus moves the transfer from the expected status to the new one.
// Zero rows affected means a concurrent transition won and ErrConflict is returned.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	const q = `UPDATE transfers SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, q, id, string(from), string(to), at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: transfer %s is no longer %s", domain.ErrConflict, id, from)
	}
	return nil
}

// Complete moves ACCEPTED to COMPLETED, marks the transfer verified, and
// clears the consumed code so it can never validate again.
func (r *PostgresRepository) Complete(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE transfers
		SET status = 'COMPLETED', verified = TRUE, code_hash = NULL,
		    code_expires_at = NULL, updated_at = $2, completed_at = $2
		WHERE id = $1 AND status = 'ACCEPTED'
	`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: transfer %s is no longer accepted", domain.ErrConflict, id)
	}
	return nil
}

// SetCode overwrites the live verification code hash and expiry. Only one
// code is ever live for a transfer.
func (r *PostgresRepository) SetCode(ctx context.Context, id, codeHash string, expiresAt, at time.Time) error {
	const q = `UPDATE transfers SET code_hash = $2, code_expires_at = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, codeHash, expiresAt, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: transfer %s", domain.ErrNotFound, id)
	}
	return nil
}

// Delete hard-removes the transfer while it is still PENDING. Zero rows
// affected means it was already acted on and ErrConflict is returned.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM transfers WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: transfer %s is no longer pending", domain.ErrConflict, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row *sql.Row) (*domain.Transfer, error) {
	t, err := scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func scanTransferRows(rows *sql.Rows) (*domain.Transfer, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (*domain.Transfer, error) {
	var (
		t              domain.Transfer
		recipientID    sql.NullString
		recipientEmail sql.NullString
		kind           string
		price          sql.NullString
		status         string
		codeHash       sql.NullString
		codeExpiresAt  sql.NullTime
		completedAt    sql.NullTime
	)
	err := s.Scan(
		&t.ID, &t.TicketID, &t.SenderID, &recipientID, &recipientEmail,
		&kind, &price, &status, &codeHash, &codeExpiresAt,
		&t.Verified, &t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	t.RecipientID = recipientID.String
	t.RecipientEmail = recipientEmail.String
	t.Kind = domain.Kind(kind)
	t.Status = domain.Status(status)
	t.CodeHash = codeHash.String
	if codeExpiresAt.Valid {
		t.CodeExpiresAt = &codeExpiresAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price.String, err)
		}
		t.Price = &d
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
