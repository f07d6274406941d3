package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
)

// defaults mirror config/config.yaml
const (
	defaultJWTSecret   = "change-me-local-jwt-secret-that-is-at-least-sixty-four-bytes-long-0000"
	defaultJWTIssuer   = "estatebite"
	defaultJWTAudience = "estatebite-web"

	operatorID    int64 = 1
	operatorEmail       = "operator@estatebite.com"
	outsiderID    int64 = 999999
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// subjectID is the seeded user codes are issued for.
func subjectID(t *testing.T) int64 {
	t.Helper()

	id, err := strconv.ParseInt(envOr("ESTATEBITE_E2E_SUBJECT_ID", "1"), 10, 64)
	if err != nil {
		t.Fatalf("parse subject id: %v", err)
	}
	return id
}

func tokenFor(t *testing.T, userID int64, email string) string {
	t.Helper()

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(envOr("ESTATEBITE_JWT_SECRET", defaultJWTSecret)),
		Issuer:    envOr("ESTATEBITE_JWT_ISSUER", defaultJWTIssuer),
		Audiences: []string{envOr("ESTATEBITE_JWT_AUDIENCES", defaultJWTAudience)},
		TTL:       5 * time.Minute,
		Clock:     clock.New(),
		UUID:      uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("init jwt: %v", err)
	}

	token, err := signer.Generate(userID, email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func operatorToken(t *testing.T) string {
	t.Helper()
	return tokenFor(t, operatorID, operatorEmail)
}

type issueData struct {
	ID        string    `json:"id"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   int64     `json:"revoked_previous"`
}

func issueOTP(t *testing.T, subject int64, purpose string) issueData {
	t.Helper()

	payload := map[string]string{
		"subject_id": strconv.FormatInt(subject, 10),
		"purpose":    purpose,
	}
	status, body := doJSON(t, http.MethodPost, "/api/v1/credentials/otp", payload, "")
	if status == http.StatusTooManyRequests {
		t.Skipf("issuance for %s is cooling down, rerun later", purpose)
	}
	if status != http.StatusCreated && status != http.StatusAccepted {
		errEnv := decodeError(t, body)
		t.Fatalf("issue failed: status=%d message=%q", status, errEnv.Message)
	}

	var data issueData
	decodeSuccess(t, body, &data)
	return data
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// latestCode reads the newest code mailed to addr from a Mailpit instance.
func latestCode(t *testing.T, addr string) string {
	t.Helper()

	mailpit := strings.TrimRight(os.Getenv("ESTATEBITE_E2E_MAILPIT_URL"), "/")
	if mailpit == "" {
		t.Skip("ESTATEBITE_E2E_MAILPIT_URL is not set")
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var search struct {
			Messages []struct {
				ID string `json:"ID"`
			} `json:"messages"`
		}
		getJSON(t, mailpit+"/api/v1/search?query="+url.QueryEscape(fmt.Sprintf("to:%q", addr)), &search)

		if len(search.Messages) > 0 {
			var msg struct {
				Text string `json:"Text"`
			}
			getJSON(t, mailpit+"/api/v1/message/"+search.Messages[0].ID, &msg)
			if code := codePattern.FindString(msg.Text); code != "" {
				return code
			}
		}
		time.Sleep(200 * time.Millisecond)
	}

	t.Fatalf("no code mailed to %s", addr)
	return ""
}

func getJSON(t *testing.T, u string, out any) {
	t.Helper()

	resp, err := httpClient.Get(u)
	if err != nil {
		t.Fatalf("get %s: %v", u, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", u, err)
	}
}
