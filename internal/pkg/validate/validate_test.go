package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/phone-verification-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upsertReq(username, code string) domain.UpsertVerificationRequest {
	return domain.UpsertVerificationRequest{Phone: "13800000000", Username: username, VerificationCode: code}
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(upsertReq("alice", "1234")))
	assert.NoError(t, Struct(upsertReq("al", "12345678")))
	assert.NoError(t, Struct(upsertReq(strings.Repeat("a", 100), "1234")))
}

func TestStruct_UsernameBounds(t *testing.T) {
	for _, name := range []string{"", "a", strings.Repeat("a", 101)} {
		err := Struct(upsertReq(name, "1234"))
		var ve domain.ValidationErrors
		require.True(t, errors.As(err, &ve), "username %q", name)
		require.Len(t, ve, 1)
		assert.Equal(t, "username", ve[0].Field)
	}
}

func TestStruct_CodeBounds(t *testing.T) {
	for _, code := range []string{"123", "123456789"} {
		err := Struct(upsertReq("alice", code))
		var ve domain.ValidationErrors
		require.True(t, errors.As(err, &ve), "code %q", code)
		require.Len(t, ve, 1)
		assert.Equal(t, "verification_code", ve[0].Field)
	}
}

func TestStruct_MultipleViolations_JoinedInFieldOrder(t *testing.T) {
	err := Struct(upsertReq("a", "1"))
	require.Error(t, err)
	assert.Equal(t,
		"username must be between 2 and 100 characters, verification code must be between 4 and 8 characters",
		err.Error())
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestStruct_CountsRunesNotBytes(t *testing.T) {
	// two runes, six bytes
	assert.NoError(t, Struct(upsertReq("张三", "1234")))
	assert.Error(t, Struct(upsertReq("张", "1234")))
}

func TestUsername(t *testing.T) {
	assert.NoError(t, Username("bob"))
	err := Username("b")
	require.Error(t, err)
	assert.Equal(t, "username must be between 2 and 100 characters", err.Error())
	assert.Error(t, Username(strings.Repeat("b", 101)))
}
