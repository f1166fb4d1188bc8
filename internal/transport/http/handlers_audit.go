package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"auditescrow/internal/domain"
	"auditescrow/internal/platform/middleware"
	"auditescrow/internal/protocol"
	"auditescrow/pkg/ids"
)

type prepareRequest struct {
	Auditors     []string `json:"auditors"`
	Cliff        uint64   `json:"cliff"`
	Duration     uint64   `json:"duration"`
	Details      string   `json:"details"`
	Amount       uint64   `json:"amount"`
	PaymentToken string   `json:"payment_token"`
	Salt         string   `json:"salt"`
}

type prepareResponse struct {
	AuditID string `json:"audit_id"`
}

func (h *Handler) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	auditors := make([]ids.Address, 0, len(req.Auditors))
	for _, a := range req.Auditors {
		auditors = append(auditors, ids.Address(a))
	}

	auditID, err := h.svc.PrepareAudit(r.Context(), middleware.GetCaller(r.Context()), protocol.PrepareParams{
		Auditors:     auditors,
		Cliff:        req.Cliff,
		Duration:     req.Duration,
		Details:      req.Details,
		Amount:       req.Amount,
		PaymentToken: ids.Address(req.PaymentToken),
		Salt:         req.Salt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, prepareResponse{AuditID: auditID.String()})
}

type revealRequest struct {
	Findings []string `json:"findings"`
	// ExpectedTokenID, when set, must match the identifier recomputed from the
	// findings; a mismatch is rejected before anything moves.
	ExpectedTokenID string `json:"expected_token_id,omitempty"`
}

type revealResponse struct {
	TokenID string `json:"token_id"`
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	var req revealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	var expected ids.TokenID
	if req.ExpectedTokenID != "" {
		var err error
		if expected, err = ids.ParseTokenID(req.ExpectedTokenID); err != nil {
			writeBadRequest(w, "invalid expected_token_id")
			return
		}
	}

	tokenID, err := h.svc.RevealFindings(r.Context(), middleware.GetCaller(r.Context()), auditID, req.Findings, expected)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, revealResponse{TokenID: tokenID.String()})
}

type auditResponse struct {
	ID                     string   `json:"id"`
	Auditee                string   `json:"auditee"`
	Auditors               []string `json:"auditors"`
	Cliff                  uint64   `json:"cliff"`
	Duration               uint64   `json:"duration"`
	Details                string   `json:"details"`
	Amount                 uint64   `json:"amount"`
	PaymentToken           string   `json:"payment_token"`
	StartTime              int64    `json:"start_time"`
	DeliverableTokenID     string   `json:"deliverable_token_id,omitempty"`
	InvalidationProposalID uint64   `json:"invalidation_proposal_id,omitempty"`
	Active                 bool     `json:"active"`
	Invalidated            bool     `json:"invalidated"`
}

func (h *Handler) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	audit, err := h.svc.GetAudit(r.Context(), auditID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, toAuditResponse(audit))
}

func (h *Handler) handleFrozen(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	frozen, err := h.svc.IsWithdrawPaused(r.Context(), auditID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"frozen": frozen})
}

type proposeRequest struct {
	Description string `json:"description"`
}

type proposeResponse struct {
	ProposalID uint64 `json:"proposal_id"`
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	proposalID, err := h.svc.ProposeInvalidation(r.Context(), middleware.GetCaller(r.Context()), auditID, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, proposeResponse{ProposalID: uint64(proposalID)})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.CancelProposal(r.Context(), middleware.GetCaller(r.Context()), auditID); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	auditID, ok := auditIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.FinalizeInvalidation(r.Context(), middleware.GetCaller(r.Context()), auditID); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func auditIDParam(w http.ResponseWriter, r *http.Request) (ids.AuditID, bool) {
	auditID, err := ids.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		writeBadRequest(w, "invalid audit id")
		return ids.AuditID{}, false
	}
	return auditID, true
}

func toAuditResponse(audit domain.Audit) auditResponse {
	auditors := make([]string, 0, len(audit.Auditors))
	for _, a := range audit.Auditors {
		auditors = append(auditors, string(a))
	}
	resp := auditResponse{
		ID:                     audit.ID.String(),
		Auditee:                string(audit.Auditee),
		Auditors:               auditors,
		Cliff:                  audit.Cliff,
		Duration:               audit.Duration,
		Details:                audit.Details,
		Amount:                 audit.Amount,
		PaymentToken:           string(audit.PaymentToken),
		StartTime:              audit.StartTime,
		InvalidationProposalID: uint64(audit.InvalidationProposalID),
		Active:                 audit.Active,
		Invalidated:            audit.Invalidated,
	}
	if !audit.DeliverableTokenID.IsZero() {
		resp.DeliverableTokenID = audit.DeliverableTokenID.String()
	}
	return resp
}
