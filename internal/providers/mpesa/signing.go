package mpesa

import (
	"encoding/base64"
	"time"
)

// timestampLayout is the YYYYMMDDHHMMSS form Daraja expects.
const timestampLayout = "20060102150405"

// signingMaterial is the timestamp/password pair Daraja requires on both
// the push and the query call. Deriving it in one place keeps the two
// paths from drifting.
type signingMaterial struct {
	Timestamp string
	Password  string
}

func newSigningMaterial(shortCode, passkey string, now time.Time) signingMaterial {
	ts := now.Format(timestampLayout)
	return signingMaterial{
		Timestamp: ts,
		Password:  base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + ts)),
	}
}
