package mpesa

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSigningMaterial(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

	mat := newSigningMaterial("174379", "passkey123", now)

	assert.Equal(t, "20250314150926", mat.Timestamp)
	assert.Equal(t,
		base64.StdEncoding.EncodeToString([]byte("174379passkey12320250314150926")),
		mat.Password,
	)
}

func TestNewSigningMaterial_TimestampShape(t *testing.T) {
	mat := newSigningMaterial("174379", "pk", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Len(t, mat.Timestamp, 14)
	assert.Equal(t, "20250102030405", mat.Timestamp)
}
