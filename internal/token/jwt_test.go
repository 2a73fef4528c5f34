package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	service := NewJWTService("test-signing-key")
	userID := id.UserID(uuid.New())

	t.Run("round trip", func(t *testing.T) {
		signed, err := service.GenerateToken(userID, id.RoleGuardian, time.Hour)
		require.NoError(t, err)

		claims, err := service.ValidateToken(signed)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, id.RoleGuardian, claims.Role)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		signed, err := service.GenerateToken(userID, id.RoleChild, -time.Minute)
		require.NoError(t, err)

		_, err = service.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong key is unauthorized", func(t *testing.T) {
		other := NewJWTService("another-key")
		signed, err := other.GenerateToken(userID, id.RoleChild, time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is unauthorized", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
