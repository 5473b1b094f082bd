package controller

import (
	"net/http"
	"strconv"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/JAMESMUTISYA1/harambeFund/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CampaignController handles campaign-related HTTP requests.
type CampaignController struct {
	campaignService *service.CampaignService
}

// NewCampaignController creates a new CampaignController.
func NewCampaignController(campaignService *service.CampaignService) *CampaignController {
	return &CampaignController{campaignService: campaignService}
}

// Create handles POST /api/v1/campaigns
func (h *CampaignController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.campaignService.CreateCampaign(r.Context(), service.CreateCampaignRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    campaign.Category(req.Category),
		OwnerID:     req.OwnerID,
		GoalCents:   floatToCents(req.Goal),
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
		EndDate:     req.EndDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromCampaign(c))
}

// Get handles GET /api/v1/campaigns/{id}
func (h *CampaignController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid campaign id", Code: "invalid_id"})
		return
	}

	c, err := h.campaignService.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromCampaign(c))
}

// List handles GET /api/v1/campaigns
func (h *CampaignController) List(w http.ResponseWriter, r *http.Request) {
	filter := campaign.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := campaign.CampaignStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("category"); s != "" {
		category := campaign.Category(s)
		filter.Category = &category
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	filter.SortBy = r.URL.Query().Get("sort_by")
	filter.SortOrder = r.URL.Query().Get("sort_order")

	campaigns, err := h.campaignService.ListCampaigns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		resp = append(resp, FromCampaign(c))
	}
	writeJSON(w, http.StatusOK, resp)
}
