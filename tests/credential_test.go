package tests

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestIssueOTP(t *testing.T) {
	// Act
	data := issueOTP(t, subjectID(t), "email-change")

	// Assert
	if data.ID == "" || data.Purpose != "email-change" {
		t.Fatalf("unexpected issue data: %+v", data)
	}
	if !data.ExpiresAt.After(time.Now()) {
		t.Fatalf("expires_at should be in the future, got %s", data.ExpiresAt)
	}
}

func TestIssueOTP_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]string
		status  int
	}{
		{
			name:    "unknown purpose",
			payload: map[string]string{"subject_id": "1", "purpose": "wire-transfer"},
			status:  http.StatusUnprocessableEntity,
		},
		{
			name:    "missing subject",
			payload: map[string]string{"subject_id": "0", "purpose": "login-2fa"},
			status:  http.StatusUnprocessableEntity,
		},
		{
			name:    "unknown subject",
			payload: map[string]string{"subject_id": strconv.FormatInt(outsiderID, 10), "purpose": "login-2fa"},
			status:  http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			status, body := doJSON(t, http.MethodPost, "/api/v1/credentials/otp", tc.payload, "")

			// Assert
			if status != tc.status {
				errEnv := decodeError(t, body)
				t.Fatalf("expected %d, got %d message=%q", tc.status, status, errEnv.Message)
			}
		})
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	// Arrange
	issueOTP(t, subjectID(t), "password-reset")
	payload := map[string]string{
		"subject_id": strconv.FormatInt(subjectID(t), 10),
		"purpose":    "password-reset",
		"code":       "000000",
	}

	// Act
	status, body := doJSON(t, http.MethodPost, "/api/v1/credentials/otp/verify", payload, "")

	// Assert
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", status, body)
	}
	if msg := decodeError(t, body).Message; msg != "Invalid or expired OTP" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestVerifyOTP_MailedCodeIsSingleUse(t *testing.T) {
	// Arrange
	issueOTP(t, subjectID(t), "signup-verification")
	code := latestCode(t, envOr("ESTATEBITE_E2E_SUBJECT_EMAIL", operatorEmail))
	payload := map[string]string{
		"subject_id": strconv.FormatInt(subjectID(t), 10),
		"purpose":    "signup-verification",
		"code":       code,
	}

	// Act
	first, body := doJSON(t, http.MethodPost, "/api/v1/credentials/otp/verify", payload, "")
	second, _ := doJSON(t, http.MethodPost, "/api/v1/credentials/otp/verify", payload, "")

	// Assert
	if first != http.StatusOK {
		t.Fatalf("expected first verify to succeed, got %d body=%s", first, body)
	}
	if second != http.StatusUnauthorized {
		t.Fatalf("expected replay to fail with 401, got %d", second)
	}
}

func TestOperatorEndpoints(t *testing.T) {
	// Arrange
	subject := strconv.FormatInt(subjectID(t), 10)
	issued := issueOTP(t, subjectID(t), "login-2fa")
	token := operatorToken(t)

	// Act + Assert: latest active
	status, body := doJSON(t, http.MethodGet, "/api/v1/credentials/otp/latest?subject_id="+subject+"&purpose=login-2fa", nil, token)
	if status != http.StatusOK {
		t.Fatalf("latest: expected 200, got %d body=%s", status, body)
	}
	var latest struct {
		ID string `json:"id"`
	}
	decodeSuccess(t, body, &latest)
	if latest.ID != issued.ID {
		t.Fatalf("latest: expected %s, got %s", issued.ID, latest.ID)
	}

	// revoke-all for the purpose
	status, body = doJSON(t, http.MethodPost, "/api/v1/credentials/otp/revoke-all",
		map[string]string{"subject_id": subject, "purpose": "login-2fa"}, token)
	if status != http.StatusOK {
		t.Fatalf("revoke-all: expected 200, got %d body=%s", status, body)
	}
	var revoked struct {
		Revoked int64 `json:"revoked"`
	}
	decodeSuccess(t, body, &revoked)
	if revoked.Revoked != 1 {
		t.Fatalf("revoke-all: expected 1, got %d", revoked.Revoked)
	}

	// revoking an already revoked credential is a no-op
	status, _ = doJSON(t, http.MethodDelete, "/api/v1/credentials/otp/"+issued.ID, nil, token)
	if status != http.StatusNoContent {
		t.Fatalf("revoke: expected 204, got %d", status)
	}

	status, _ = doJSON(t, http.MethodGet, "/api/v1/credentials/otp/latest?subject_id="+subject+"&purpose=login-2fa", nil, token)
	if status != http.StatusNotFound {
		t.Fatalf("latest after revoke: expected 404, got %d", status)
	}

	status, body = doJSON(t, http.MethodPost, "/api/v1/credentials/otp/sweep", nil, token)
	if status != http.StatusOK {
		t.Fatalf("sweep: expected 200, got %d body=%s", status, body)
	}
}

func TestOperatorEndpoints_Authz(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "anonymous", token: "", status: http.StatusUnauthorized},
		{name: "not an operator", token: tokenFor(t, outsiderID, "outsider@example.com"), status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			status, _ := doJSON(t, http.MethodPost, "/api/v1/credentials/otp/sweep", nil, tc.token)

			// Assert
			if status != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, status)
			}
		})
	}
}
