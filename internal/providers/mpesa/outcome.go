package mpesa

import (
	"github.com/JAMESMUTISYA1/harambeFund/internal/providers"
)

// MapResultCode translates Daraja's proprietary STK result codes into
// canonical outcomes. Code 1032 means the payer dismissed the prompt on
// their handset: terminal, but distinct from a provider-side failure, so
// callers can offer an immediate retry of the same donation.
func MapResultCode(code, description string) providers.Outcome {
	switch code {
	case "0":
		return providers.Outcome{State: providers.OutcomeSucceeded}
	case "1032":
		return providers.Outcome{
			State:  providers.OutcomeCancelled,
			Reason: "payment request cancelled by user",
		}
	default:
		reason := description
		if reason == "" {
			reason = "payment failed with result code " + code
		}
		return providers.Outcome{State: providers.OutcomeFailed, Reason: reason}
	}
}
