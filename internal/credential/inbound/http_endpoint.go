package inbound

import (
	"strconv"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
)

// HTTPEndpoint exposes the one-time code lifecycle over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// Issue creates a one-time code and sends it to the subject.
// @Summary Issue one-time code
// @Description Replaces any active code of the subject for the purpose and delivers a new one. The code itself is never returned.
// @Tags Credential
// @Accept json
// @Produce json
// @Param request body IssueOTPRequest true "Issue payload"
// @Success 201 {object} router.successResponse{data=IssueOTPResponse} "Code issued"
// @Success 202 {object} router.successResponse{data=IssueOTPResponse} "Code issued, delivery failed"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 404 {object} router.errorResponse "Subject not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 503 {object} router.errorResponse "Service temporarily unavailable"
// @Router /api/v1/credentials/otp [post]
func (h *HTTPEndpoint) Issue(r *router.Request) (any, error) {
	var req IssueOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Issue(r.Context(), usecase.IssueInput{
		SubjectID: req.SubjectID,
		Purpose:   entity.ParsePurpose(req.Purpose),
	})
	if err != nil && (resp == nil || !goerror.HasCode(err, goerror.CodeNotificationFailure)) {
		return nil, err
	}

	return IssueOTPResponse{
		ID:             resp.Credential.ID,
		Purpose:        resp.Credential.Purpose.String(),
		ExpiresAt:      resp.Credential.ExpiresAt,
		Revoked:        resp.Revoked,
		deliveryFailed: err != nil,
	}, nil
}

// Verify consumes a one-time code.
// @Summary Verify one-time code
// @Description Consumes the code when it matches an active credential for the purpose. A code verifies at most once.
// @Tags Credential
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyOTPResponse} "Code verified"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid or expired OTP"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Service temporarily unavailable"
// @Router /api/v1/credentials/otp/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		SubjectID: req.SubjectID,
		Code:      req.Code,
		Purpose:   entity.ParsePurpose(req.Purpose),
	})
	if err != nil {
		return nil, err
	}

	return VerifyOTPResponse{Valid: resp.Valid}, nil
}

// LatestActive returns metadata of the active code of a subject.
// @Summary Latest active code
// @Tags Credential
// @Security BearerAuth
// @Produce json
// @Param subject_id query string true "Subject ID"
// @Param purpose query string true "Purpose"
// @Success 200 {object} router.successResponse{data=LatestActiveResponse} "Active credential"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 404 {object} router.errorResponse "No active credential"
// @Router /api/v1/credentials/otp/latest [get]
func (h *HTTPEndpoint) LatestActive(r *router.Request) (any, error) {
	subjectID, err := strconv.ParseInt(r.GetQuery("subject_id"), 10, 64)
	if err != nil {
		return nil, goerror.NewInvalidFormat("Invalid query subject_id")
	}

	cred, err := h.uc.LatestActive(r.Context(), usecase.LatestActiveInput{
		SubjectID: subjectID,
		Purpose:   entity.ParsePurpose(r.GetQuery("purpose")),
	})
	if err != nil {
		return nil, err
	}

	return LatestActiveResponse{
		ID:        cred.ID,
		SubjectID: cred.SubjectID,
		Purpose:   cred.Purpose.String(),
		CreatedAt: cred.CreatedAt,
		ExpiresAt: cred.ExpiresAt,
	}, nil
}

// Revoke invalidates one code.
// @Summary Revoke code
// @Tags Credential
// @Security BearerAuth
// @Param id path string true "Credential ID"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 404 {object} router.errorResponse "Credential not found"
// @Router /api/v1/credentials/otp/{id} [delete]
func (h *HTTPEndpoint) Revoke(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.Revoke(r.Context(), usecase.RevokeInput{ID: id})
}

// RevokeAll invalidates every outstanding code of a subject.
// @Summary Revoke all codes
// @Tags Credential
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body RevokeAllRequest true "Revoke payload"
// @Success 200 {object} router.successResponse{data=RevokeAllResponse} "Revoked count"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/credentials/otp/revoke-all [post]
func (h *HTTPEndpoint) RevokeAll(r *router.Request) (any, error) {
	var req RevokeAllRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.RevokeAllInput{SubjectID: req.SubjectID}
	if req.Purpose != nil {
		p := entity.ParsePurpose(*req.Purpose)
		in.Purpose = &p
	}

	resp, err := h.uc.RevokeAll(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return RevokeAllResponse{Revoked: resp.Revoked}, nil
}

// Sweep deletes expired and revoked codes.
// @Summary Sweep codes
// @Tags Credential
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=SweepResponse} "Deleted count"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Router /api/v1/credentials/otp/sweep [post]
func (h *HTTPEndpoint) Sweep(r *router.Request) (any, error) {
	resp, err := h.uc.SweepExpired(r.Context())
	if err != nil {
		return nil, err
	}

	return SweepResponse{Deleted: resp.Deleted}, nil
}
