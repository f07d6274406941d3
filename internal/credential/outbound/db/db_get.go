package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/estatebite/internal/credential/entity"
)

func scanCredential(row pgx.Row) (*entity.Credential, error) {
	var (
		c       entity.Credential
		purpose string
	)
	if err := row.Scan(&c.ID, &c.SubjectID, &purpose, &c.CodeHash, &c.CreatedAt, &c.ExpiresAt, &c.Revoked); err != nil {
		return nil, err
	}
	c.Purpose = entity.Purpose(purpose)

	return &c, nil
}

func (s *DB) GetSubject(ctx context.Context, id int64) (_ *entity.Subject, err error) {
	ctx, span := s.startSpan(ctx, "GetSubject")
	defer func() { s.endSpan(span, err) }()

	var sub entity.Subject
	err = s.conn.QueryRow(ctx, `SELECT id, email, full_name FROM users WHERE id = $1`, id).
		Scan(&sub.ID, &sub.Email, &sub.FullName)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &sub, nil
}

func (s *DB) FindActive(ctx context.Context, subjectID int64, purpose entity.Purpose, now time.Time) (_ *entity.Credential, err error) {
	ctx, span := s.startSpan(ctx, "FindActive")
	defer func() { s.endSpan(span, err) }()

	cred, err := scanCredential(s.conn.QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE subject_id = $1 AND purpose = $2 AND NOT revoked AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`,
		subjectID, purpose.String(), now,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return cred, nil
}

func (s *DB) FindValid(ctx context.Context, subjectID int64, codeHash string, purpose entity.Purpose, now time.Time) (_ *entity.Credential, err error) {
	ctx, span := s.startSpan(ctx, "FindValid")
	defer func() { s.endSpan(span, err) }()

	cred, err := scanCredential(s.conn.QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE subject_id = $1 AND code_hash = $2 AND purpose = $3 AND NOT revoked AND expires_at > $4
		LIMIT 1`,
		subjectID, codeHash, purpose.String(), now,
	))
	if err != nil {
		return nil, s.mapError(err)
	}

	return cred, nil
}
