package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	occurredAt := time.Date(2024, 5, 15, 14, 30, 45, 123456789, time.UTC)
	entryID := "4b0f4a8e-1d7c-4c9a-9a55-7f1f3d5a2e10"

	token := EncodeToken(occurredAt, entryID)
	assert.NotEmpty(t, token)

	decodedAt, decodedID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, occurredAt.Equal(decodedAt))
	assert.Equal(t, entryID, decodedID)
}

func TestEncodeToken_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	occurredAt := time.Date(2024, 1, 1, 3, 0, 0, 0, loc)

	decodedAt, _, err := DecodeToken(EncodeToken(occurredAt, "x"))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, decodedAt.Location())
	assert.True(t, occurredAt.Equal(decodedAt))
}

func TestDecodeTokenError(t *testing.T) {
	_, _, err := DecodeToken("this is not base64!")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base64 decode")

	noSeparator := base64.StdEncoding.EncodeToString([]byte("2024-05-15T00:00:00Z"))
	_, _, err = DecodeToken(noSeparator)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	emptyID := base64.StdEncoding.EncodeToString([]byte("2024-05-15T00:00:00Z|"))
	_, _, err = DecodeToken(emptyID)
	assert.Error(t, err)

	badDate := base64.StdEncoding.EncodeToString([]byte("notadate|abc"))
	_, _, err = DecodeToken(badDate)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "occurred_at parse")
}
