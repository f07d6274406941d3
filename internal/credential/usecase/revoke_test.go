package usecase_test

import (
	"context"
	"testing"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

func TestRevoke(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		f := newFixture(t)
		out := f.issue(t, subjectID, entity.PurposeLogin2FA)

		for i := range 2 {
			if err := f.uc.Revoke(context.Background(), usecase.RevokeInput{ID: out.Credential.ID}); err != nil {
				t.Fatalf("revoke #%d: %v", i+1, err)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Revoke(context.Background(), usecase.RevokeInput{ID: 77})

		if !goerror.HasCode(err, goerror.CodeNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestRevokeAll(t *testing.T) {
	t.Run("all purposes", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		signup := f.issue(t, subjectID, entity.PurposeSignupVerification)
		reset := f.issue(t, subjectID, entity.PurposePasswordReset)
		other := f.issue(t, otherSubjectID, entity.PurposePasswordReset)

		// Act
		out, err := f.uc.RevokeAll(context.Background(), usecase.RevokeAllInput{SubjectID: subjectID})

		// Assert
		if err != nil {
			t.Fatalf("revoke all: %v", err)
		}
		if out.Revoked != 2 {
			t.Fatalf("expected 2 revoked, got %d", out.Revoked)
		}
		if err := f.verify(subjectID, signup.Code, entity.PurposeSignupVerification); !goerror.HasCode(err, goerror.CodeVerificationFailed) {
			t.Fatalf("signup code must be revoked, got %v", err)
		}
		if err := f.verify(subjectID, reset.Code, entity.PurposePasswordReset); !goerror.HasCode(err, goerror.CodeVerificationFailed) {
			t.Fatalf("reset code must be revoked, got %v", err)
		}
		if err := f.verify(otherSubjectID, other.Code, entity.PurposePasswordReset); err != nil {
			t.Fatalf("other subject must be untouched, got %v", err)
		}
	})

	t.Run("single purpose", func(t *testing.T) {
		f := newFixture(t)
		signup := f.issue(t, subjectID, entity.PurposeSignupVerification)
		f.issue(t, subjectID, entity.PurposePasswordReset)
		purpose := entity.PurposePasswordReset

		out, err := f.uc.RevokeAll(context.Background(), usecase.RevokeAllInput{SubjectID: subjectID, Purpose: &purpose})

		if err != nil {
			t.Fatalf("revoke all: %v", err)
		}
		if out.Revoked != 1 {
			t.Fatalf("expected 1 revoked, got %d", out.Revoked)
		}
		if err := f.verify(subjectID, signup.Code, entity.PurposeSignupVerification); err != nil {
			t.Fatalf("signup code must survive, got %v", err)
		}
	})

	t.Run("nothing to revoke", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.uc.RevokeAll(context.Background(), usecase.RevokeAllInput{SubjectID: subjectID})

		if err != nil || out.Revoked != 0 {
			t.Fatalf("expected zero, got %+v, %v", out, err)
		}
	})
}

func TestLatestActive(t *testing.T) {
	f := newFixture(t)
	f.issue(t, subjectID, entity.PurposeLogin2FA)
	f.clock.Advance(1)
	latest := f.issue(t, subjectID, entity.PurposeLogin2FA)

	cred, err := f.uc.LatestActive(context.Background(), usecase.LatestActiveInput{SubjectID: subjectID, Purpose: entity.PurposeLogin2FA})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if cred.ID != latest.Credential.ID {
		t.Fatalf("expected %d, got %d", latest.Credential.ID, cred.ID)
	}

	_, err = f.uc.LatestActive(context.Background(), usecase.LatestActiveInput{SubjectID: subjectID, Purpose: entity.PurposeEmailChange})
	if !goerror.HasCode(err, goerror.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
