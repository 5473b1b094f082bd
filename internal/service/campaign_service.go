package service

import (
	"context"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	"github.com/google/uuid"
)

type CampaignService struct {
	campaignRepo campaign.Repository
}

func NewCampaignService(campaignRepo campaign.Repository) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
	}
}

// CreateCampaignRequest holds the input for creating a campaign.
type CreateCampaignRequest struct {
	Title       string
	Description string
	Category    campaign.Category
	OwnerID     string
	GoalCents   int64
	Currency    string
	ImageURL    string
	EndDate     *time.Time
}

func (s *CampaignService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*campaign.Campaign, error) {
	c, err := campaign.NewCampaign(req.Title, req.Description, req.Category, req.OwnerID, req.GoalCents, req.Currency)
	if err != nil {
		return nil, err
	}
	c.ImageURL = req.ImageURL
	c.EndDate = req.EndDate

	if err := s.campaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	return s.campaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) ListCampaigns(ctx context.Context, f campaign.ListFilter) ([]*campaign.Campaign, error) {
	return s.campaignRepo.List(ctx, f)
}
