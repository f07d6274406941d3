package db

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/estatebite/internal/credential/entity"
)

// ReplaceActive revokes every unrevoked credential of (subject, purpose) and
// inserts cred in one transaction. Concurrent callers for the same pair are
// serialised by a transaction-scoped advisory lock.
func (s *DB) ReplaceActive(ctx context.Context, cred entity.Credential) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "ReplaceActive")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	lockKey := strconv.FormatInt(cred.SubjectID, 10) + ":" + cred.Purpose.String()
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return 0, s.mapError(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE credentials SET revoked = TRUE
		WHERE subject_id = $1 AND purpose = $2 AND NOT revoked`,
		cred.SubjectID, cred.Purpose.String(),
	)
	if err != nil {
		return 0, s.mapError(err)
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cred.ID, cred.SubjectID, cred.Purpose.String(), cred.CodeHash, cred.CreatedAt, cred.ExpiresAt, cred.Revoked,
	); err != nil {
		return 0, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
