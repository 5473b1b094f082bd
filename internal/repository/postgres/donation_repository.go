package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JAMESMUTISYA1/harambeFund/internal/domain/donation"
	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DonationRepository implements donation.Repository using PostgreSQL.
type DonationRepository struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new DonationRepository.
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

func (r *DonationRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const donationColumns = `id, transaction_id, campaign_id, amount_cents, currency,
	        method, msisdn, email, donor_name, status,
	        checkout_request_id, provider_ref, mpesa_receipt, failure_reason,
	        created_at, updated_at, completed_at`

// Create inserts a new donation.
func (r *DonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO donations
		 (id, transaction_id, campaign_id, amount_cents, currency,
		  method, msisdn, email, donor_name, status,
		  checkout_request_id, provider_ref, mpesa_receipt, failure_reason,
		  created_at, updated_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		d.ID, d.TransactionID, d.CampaignID, d.AmountCents, d.Currency,
		string(d.Method), d.Msisdn, d.Email, d.DonorName, string(d.Status),
		d.CheckoutRequestID, d.ProviderRef, d.MpesaReceipt, d.FailureReason,
		d.CreatedAt, d.UpdatedAt, d.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// GetByID retrieves a donation by its ID.
func (r *DonationRepository) GetByID(ctx context.Context, id uuid.UUID) (*donation.Donation, error) {
	return r.scanDonation(r.db(ctx).QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`, id))
}

// GetByTransactionID retrieves a donation by its merchant transaction reference.
func (r *DonationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*donation.Donation, error) {
	return r.scanDonation(r.db(ctx).QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE transaction_id = $1`, transactionID))
}

// GetByCheckoutRequestID retrieves a donation by the provider correlation handle.
func (r *DonationRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*donation.Donation, error) {
	return r.scanDonation(r.db(ctx).QueryRow(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE checkout_request_id = $1`, checkoutRequestID))
}

// SetCheckoutRequestID stores the correlation handle returned by the provider
// once the payment prompt has been dispatched.
func (r *DonationRepository) SetCheckoutRequestID(ctx context.Context, id uuid.UUID, checkoutRequestID, providerRef string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE donations SET checkout_request_id=$1, provider_ref=$2, updated_at=NOW() WHERE id=$3`,
		checkoutRequestID, providerRef, id,
	)
	if err != nil {
		return fmt.Errorf("set checkout request id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrDonationNotFound
	}
	return nil
}

// List lists donations with optional filters.
func (r *DonationRepository) List(ctx context.Context, f donation.ListFilter) ([]*donation.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.CampaignID != nil {
		query += fmt.Sprintf(" AND campaign_id = $%d", argIdx)
		args = append(args, *f.CampaignID)
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.Method != nil {
		query += fmt.Sprintf(" AND method = $%d", argIdx)
		args = append(args, string(*f.Method))
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var donations []*donation.Donation
	for rows.Next() {
		d, err := r.scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// Finalize moves a pending donation into a terminal status. The WHERE clause
// guards finality at the database level: if the row is already terminal no
// rows match, Finalize returns false and the caller treats the confirmation
// as a replay.
func (r *DonationRepository) Finalize(ctx context.Context, id uuid.UUID, status donation.DonationStatus, mpesaReceipt, failureReason string) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE donations SET
		  status=$1, mpesa_receipt=$2, failure_reason=$3,
		  updated_at=NOW(), completed_at=NOW()
		 WHERE id=$4 AND status='pending'`,
		string(status), mpesaReceipt, failureReason, id,
	)
	if err != nil {
		return false, fmt.Errorf("finalize donation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListStalePending returns pending donations whose last update is older than
// the cutoff, oldest first, for the reconciler to resume.
func (r *DonationRepository) ListStalePending(ctx context.Context, method donation.Method, olderThan time.Duration, limit int) ([]*donation.Donation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+donationColumns+`
		 FROM donations
		 WHERE status = 'pending' AND method = $1
		   AND checkout_request_id <> ''
		   AND updated_at < NOW() - $2::interval
		 ORDER BY updated_at ASC
		 LIMIT $3`,
		string(method), fmt.Sprintf("%d seconds", int(olderThan.Seconds())), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale pending donations: %w", err)
	}
	defer rows.Close()

	var donations []*donation.Donation
	for rows.Next() {
		d, err := r.scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// scanDonation scans a donation from any source implementing the scanner interface.
func (r *DonationRepository) scanDonation(s scanner) (*donation.Donation, error) {
	d := &donation.Donation{}
	var (
		method string
		status string
	)
	err := s.Scan(
		&d.ID, &d.TransactionID, &d.CampaignID, &d.AmountCents, &d.Currency,
		&method, &d.Msisdn, &d.Email, &d.DonorName, &status,
		&d.CheckoutRequestID, &d.ProviderRef, &d.MpesaReceipt, &d.FailureReason,
		&d.CreatedAt, &d.UpdatedAt, &d.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrDonationNotFound
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}

	d.Method = donation.Method(method)
	d.Status = donation.DonationStatus(status)
	return d, nil
}
