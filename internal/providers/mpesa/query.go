package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
)

// errCodeProcessing is Daraja's "transaction is being processed" error,
// returned with a non-2xx status while the payer has not yet acted on the
// prompt. It is the one error payload that means pending, not failure.
const errCodeProcessing = "500.001.1001"

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// CheckStatus asks Daraja what happened to an STK push request. The
// provider requires the same signing material as the push itself. Errors
// returned here are transient: the confirmation poller retries them within
// its attempt budget.
func (c *Client) CheckStatus(ctx context.Context, checkoutRequestID string) (providers.Outcome, error) {
	if checkoutRequestID == "" {
		return providers.Outcome{}, domainErrors.NewValidationError("checkout_request_id", "required")
	}

	mat := newSigningMaterial(c.cfg.ShortCode, c.cfg.Passkey, c.now())
	payload := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          mat.Password,
		Timestamp:         mat.Timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	status, body, err := c.call(ctx, "/mpesa/stkpushquery/v1/query", payload)
	if err != nil {
		return providers.Outcome{}, err
	}
	if status != http.StatusOK {
		var de darajaError
		if json.Unmarshal(body, &de) == nil && de.ErrorCode == errCodeProcessing {
			return providers.Outcome{State: providers.OutcomePending, Raw: body}, nil
		}
		return providers.Outcome{}, fmt.Errorf("stk query returned status %d: %s: %w", status, body, domainErrors.ErrProviderRequest)
	}

	var resp stkQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return providers.Outcome{}, fmt.Errorf("decode stk query response: %w", domainErrors.ErrProviderProtocol)
	}

	out := MapResultCode(resp.ResultCode, resp.ResultDesc)
	out.Raw = body
	return out, nil
}
