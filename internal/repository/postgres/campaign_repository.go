package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/campaign"
	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedCampaignSortColumns is a whitelist of columns valid for ORDER BY.
var allowedCampaignSortColumns = map[string]string{
	"created_at":  "created_at",
	"goal":        "goal_cents",
	"raised":      "raised_cents",
	"end_date":    "end_date",
	"donor_count": "donor_count",
}

// CampaignRepository implements campaign.Repository using PostgreSQL.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new CampaignRepository.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

func (r *CampaignRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const campaignColumns = `id, title, description, category, owner_id,
	        goal_cents, raised_cents, donor_count, currency, status,
	        image_url, end_date, created_at, updated_at`

// Create inserts a new campaign.
func (r *CampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO campaigns
		 (id, title, description, category, owner_id,
		  goal_cents, raised_cents, donor_count, currency, status,
		  image_url, end_date, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.Title, c.Description, string(c.Category), c.OwnerID,
		c.GoalCents, c.RaisedCents, c.DonorCount, c.Currency, string(c.Status),
		c.ImageURL, c.EndDate, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByID retrieves a campaign by its ID.
func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	return r.scanCampaign(r.db(ctx).QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
}

// List lists campaigns with optional filters.
func (r *CampaignRepository) List(ctx context.Context, f campaign.ListFilter) ([]*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, string(*f.Category))
		argIdx++
	}

	// Strict whitelist for sort column
	sortBy := "created_at"
	if col, ok := allowedCampaignSortColumns[f.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*campaign.Campaign
	for rows.Next() {
		c, err := r.scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// RecordDonation credits a completed donation to the campaign totals.
// A single relative UPDATE keeps concurrent confirmations from losing
// increments; there is no read-modify-write window.
func (r *CampaignRepository) RecordDonation(ctx context.Context, id uuid.UUID, amountCents int64) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE campaigns SET
		  raised_cents = raised_cents + $1,
		  donor_count  = donor_count + 1,
		  updated_at   = NOW()
		 WHERE id = $2`,
		amountCents, id,
	)
	if err != nil {
		return fmt.Errorf("record donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrCampaignNotFound
	}
	return nil
}

// scanCampaign scans a campaign from any source implementing the scanner interface.
func (r *CampaignRepository) scanCampaign(s scanner) (*campaign.Campaign, error) {
	c := &campaign.Campaign{}
	var (
		category string
		status   string
	)
	err := s.Scan(
		&c.ID, &c.Title, &c.Description, &category, &c.OwnerID,
		&c.GoalCents, &c.RaisedCents, &c.DonorCount, &c.Currency, &status,
		&c.ImageURL, &c.EndDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	c.Category = campaign.Category(category)
	c.Status = campaign.CampaignStatus(status)
	return c, nil
}
