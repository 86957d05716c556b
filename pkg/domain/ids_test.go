package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "misiones/pkg/domain-errors"
)

func TestParseSiteID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSiteID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSiteID("pueblo-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSiteID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		u := uuid.New()
		got, err := ParseSiteID(u.String())
		require.NoError(t, err)
		assert.Equal(t, SiteID(u), got)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE registrations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errSite := ParseSiteID(tt.input)
			_, errReg := ParseRegistrationID(tt.input)
			_, errNotice := ParseNoticeID(tt.input)
			if tt.wantErr {
				require.Error(t, errSite)
				require.Error(t, errReg)
				require.Error(t, errNotice)
				assert.True(t, dErrors.HasCode(errReg, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, errSite)
			require.NoError(t, errReg)
			require.NoError(t, errNotice)
		})
	}
}

func TestIDs_JSON(t *testing.T) {
	regID := NewRegistrationID()
	body, err := json.Marshal(map[string]RegistrationID{"id": regID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+regID.String()+`"}`, string(body))

	var decoded struct {
		ID RegistrationID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, regID, decoded.ID)

	err = json.Unmarshal([]byte(`{"id":"nope"}`), &decoded)
	require.Error(t, err)
}

func TestIsNil(t *testing.T) {
	assert.True(t, SiteID{}.IsNil())
	assert.False(t, NewSiteID().IsNil())
	assert.True(t, RegistrationID{}.IsNil())
}
