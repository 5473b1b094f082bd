package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers/mpesa"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DonationController handles donation and payment HTTP requests.
type DonationController struct {
	donationService *service.DonationService
	logger          zerolog.Logger
}

// NewDonationController creates a new DonationController.
func NewDonationController(donationService *service.DonationService, logger zerolog.Logger) *DonationController {
	return &DonationController{
		donationService: donationService,
		logger:          logger,
	}
}

// ProcessDonation handles POST /api/v1/payments/process
func (h *DonationController) ProcessDonation(w http.ResponseWriter, r *http.Request) {
	var req ProcessDonationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid campaign_id", Code: "invalid_id"})
		return
	}

	resp, err := h.donationService.ProcessDonation(r.Context(), service.ProcessDonationRequest{
		CampaignID:  campaignID,
		AmountCents: floatToCents(req.Amount),
		Currency:    req.Currency,
		Method:      donation.Method(req.Method),
		Msisdn:      req.Msisdn,
		Email:       req.Email,
		DonorName:   req.DonorName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, InitiateDonationResponse{
		Donation:          FromDonation(resp.Donation),
		CheckoutRequestID: resp.CheckoutRequestID,
		ClientSecret:      resp.ClientSecret,
		CustomerMessage:   resp.CustomerMessage,
	})
}

// QueryStatus handles POST /api/v1/payments/mpesa/status. Clients poll this
// endpoint while the payer confirms on their phone; each call issues at most
// one upstream status inquiry.
func (h *DonationController) QueryStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusQueryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	d, outcome, err := h.donationService.CheckDonationStatus(r.Context(), req.CheckoutRequestID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusQueryResponse{
		Status:       outcomeLabel(outcome.State),
		ResultDesc:   outcome.Reason,
		MpesaReceipt: d.MpesaReceipt,
		Donation:     FromDonation(d),
	})
}

// MpesaCallback handles POST /api/v1/payments/mpesa/callback, the
// asynchronous confirmation Daraja sends once the payer acts on the prompt.
// Daraja retries on non-200 answers, so anything we cannot act on is
// acknowledged and logged rather than rejected.
func (h *DonationController) MpesaCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable body", Code: "invalid_body"})
		return
	}

	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("malformed mpesa callback")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed callback", Code: "invalid_body"})
		return
	}

	if err := h.donationService.ResolveByHandle(r.Context(), cb.CheckoutRequestID, cb.Outcome()); err != nil {
		if errors.Is(err, domainErrors.ErrDonationNotFound) {
			h.logger.Warn().
				Str("checkout_request_id", cb.CheckoutRequestID).
				Msg("callback for unknown donation")
		} else {
			h.logger.Error().Err(err).
				Str("checkout_request_id", cb.CheckoutRequestID).
				Msg("apply mpesa callback")
		}
	}

	// Daraja's expected acknowledgement shape.
	writeJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// GetDonation handles GET /api/v1/donations/{id}
func (h *DonationController) GetDonation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid donation id", Code: "invalid_id"})
		return
	}

	d, err := h.donationService.GetDonation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromDonation(d))
}

// ListCampaignDonations handles GET /api/v1/campaigns/{id}/donations
func (h *DonationController) ListCampaignDonations(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid campaign id", Code: "invalid_id"})
		return
	}

	filter := donation.ListFilter{CampaignID: &campaignID}
	if s := r.URL.Query().Get("status"); s != "" {
		status := donation.DonationStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("method"); s != "" {
		method := donation.Method(s)
		filter.Method = &method
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	donations, err := h.donationService.ListDonations(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*DonationResponse, 0, len(donations))
	for _, d := range donations {
		resp = append(resp, FromDonation(d))
	}
	writeJSON(w, http.StatusOK, resp)
}
