package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

func (s *DB) ConsumeIfValid(ctx context.Context, id int64, now time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "ConsumeIfValid")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE credentials SET revoked = TRUE
		WHERE id = $1 AND NOT revoked AND expires_at > $2`,
		id, now,
	)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) RevokeActive(ctx context.Context, subjectID int64, purpose *entity.Purpose) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "RevokeActive")
	defer func() { s.endSpan(span, err) }()

	var p *string
	if purpose != nil {
		v := purpose.String()
		p = &v
	}

	tag, err := s.conn.Exec(ctx, `
		UPDATE credentials SET revoked = TRUE
		WHERE subject_id = $1 AND NOT revoked AND ($2::text IS NULL OR purpose = $2)`,
		subjectID, p,
	)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func (s *DB) Revoke(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "Revoke")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE credentials SET revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpiredOrRevoked")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM credentials WHERE revoked OR expires_at <= $1`, now)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
