package inbound

import (
	"net/http"
	"time"
)

type IssueOTPRequest struct {
	SubjectID int64  `json:"subject_id,string"`
	Purpose   string `json:"purpose"`
}

type IssueOTPResponse struct {
	ID        int64     `json:"id,string"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   int64     `json:"revoked_previous"`

	deliveryFailed bool
}

func (r IssueOTPResponse) StatusCode() int {
	if r.deliveryFailed {
		return http.StatusAccepted
	}
	return http.StatusCreated
}

func (r IssueOTPResponse) Message() string {
	if r.deliveryFailed {
		return "Code issued but delivery failed, please request a new one if it does not arrive"
	}
	return "Code has been sent"
}

type VerifyOTPRequest struct {
	SubjectID int64  `json:"subject_id,string"`
	Code      string `json:"code"`
	Purpose   string `json:"purpose"`
}

type VerifyOTPResponse struct {
	Valid bool `json:"valid"`
}

func (VerifyOTPResponse) Message() string {
	return "Code verified"
}

type RevokeAllRequest struct {
	SubjectID int64   `json:"subject_id,string"`
	Purpose   *string `json:"purpose,omitempty"`
}

type RevokeAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

type LatestActiveResponse struct {
	ID        int64     `json:"id,string"`
	SubjectID int64     `json:"subject_id,string"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
