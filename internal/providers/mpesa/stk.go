package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
)

const (
	transactionType = "CustomerPayBillOnline"
	// Daraja rejects account references longer than 12 characters.
	accountRefMaxLen = 12
)

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Initiate asks Daraja to prompt the payer's handset for authorization.
// Its entire effect is the out-of-band prompt; no local state is mutated.
// All input validation happens before the token fetch, so invalid input
// never reaches the network.
func (c *Client) Initiate(ctx context.Context, req providers.InitiateRequest) (*providers.InitiateResult, error) {
	if req.AmountCents <= 0 {
		return nil, domainErrors.NewValidationError("amount", "must be greater than 0")
	}
	if req.AmountCents%100 != 0 {
		return nil, domainErrors.NewValidationError("amount", "must be a whole number of shillings")
	}
	msisdn, err := providers.NormalizeMSISDN(req.Msisdn)
	if err != nil {
		return nil, err
	}
	if req.AccountReference == "" {
		return nil, domainErrors.NewValidationError("account_reference", "required")
	}
	if req.Description == "" {
		return nil, domainErrors.NewValidationError("description", "required")
	}
	ref := req.AccountReference
	if len(ref) > accountRefMaxLen {
		ref = ref[:accountRefMaxLen]
	}

	mat := newSigningMaterial(c.cfg.ShortCode, c.cfg.Passkey, c.now())
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          mat.Password,
		Timestamp:         mat.Timestamp,
		TransactionType:   transactionType,
		Amount:            req.AmountCents / 100,
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  ref,
		TransactionDesc:   req.Description,
	}

	status, body, err := c.call(ctx, "/mpesa/stkpush/v1/processrequest", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("stk push returned status %d: %s: %w", status, body, domainErrors.ErrProviderRequest)
	}

	var resp stkPushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stk push response: %w", domainErrors.ErrProviderProtocol)
	}
	if resp.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: %s: %w", resp.ResponseDescription, domainErrors.ErrProviderRequest)
	}
	if resp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stk push response missing CheckoutRequestID: %w", domainErrors.ErrProviderProtocol)
	}

	c.logger.Info().
		Str("checkout_request_id", resp.CheckoutRequestID).
		Str("msisdn", msisdn).
		Int64("amount", payload.Amount).
		Msg("stk push accepted")

	return &providers.InitiateResult{
		CheckoutRequestID:    resp.CheckoutRequestID,
		CustomerMessage:      resp.CustomerMessage,
		RequiresConfirmation: true,
	}, nil
}
