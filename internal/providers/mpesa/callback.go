package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"

	domainErrors "github.com/JAMESMUTISYA1/harambeFund/internal/domain/errors"
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
)

type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the parsed asynchronous confirmation Daraja posts to
// the configured callback URL once the payer acts on the prompt.
type CallbackResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string
	AmountCents       int64
	MpesaReceipt      string
	Msisdn            string
	raw               []byte
}

// ParseCallback decodes an STK push confirmation callback payload.
func ParseCallback(payload []byte) (*CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode stk callback: %w", domainErrors.ErrProviderProtocol)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stk callback missing CheckoutRequestID: %w", domainErrors.ErrProviderProtocol)
	}

	result := &CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		raw:               payload,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				result.AmountCents = int64(v * 100)
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				result.MpesaReceipt = v
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				result.Msisdn = strconv.FormatInt(int64(v), 10)
			case string:
				result.Msisdn = v
			}
		}
	}
	return result, nil
}

// Outcome maps the callback's result code the same way the status oracle
// maps query responses.
func (r *CallbackResult) Outcome() providers.Outcome {
	out := MapResultCode(strconv.Itoa(r.ResultCode), r.ResultDesc)
	out.ProviderReference = r.MpesaReceipt
	out.Raw = r.raw
	return out
}
