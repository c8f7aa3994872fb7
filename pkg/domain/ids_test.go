package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "admitto/pkg/domain-errors"
)

func TestParseUUIDInvariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseInstitutionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCourseID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		parsed, err := ParseApplicationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, valid.String(), parsed.String())
	})
}

func TestTypedIDJSONRendering(t *testing.T) {
	raw := uuid.New()
	body, err := json.Marshal(struct {
		ID InstitutionID `json:"id"`
	}{ID: InstitutionID(raw)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+raw.String()+`"}`, string(body))

	var decoded struct {
		ID InstitutionID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, InstitutionID(raw), decoded.ID)
}

func TestIsNil(t *testing.T) {
	assert.True(t, UserID{}.IsNil())
	assert.False(t, UserID(uuid.New()).IsNil())
}
