package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
)

var classifyNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name      string
		birthdate string
		role      DeclaredRole
		want      id.AccountType
		wantAge   int
	}{
		{"under 13 child", "2015-06-16", DeclaredChild, id.AccountRequiresParent, 10},
		{"13th birthday today", "2013-06-15", DeclaredChild, id.AccountMinorOptionalGuardian, 13},
		{"day before 13th birthday", "2013-06-16", DeclaredChild, id.AccountRequiresParent, 12},
		{"17 year old child", "2008-07-01", DeclaredChild, id.AccountMinorOptionalGuardian, 17},
		{"18th birthday today", "2008-06-15", DeclaredChild, id.AccountAdult, 18},
		{"adult", "1990-01-01", DeclaredChild, id.AccountAdult, 36},
		{"parent role wins regardless of age", "2010-01-01", DeclaredParent, id.AccountGuardian, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.birthdate, tt.role, classifyNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.AccountType)
			assert.Equal(t, tt.wantAge, got.Age)
		})
	}
}

func TestClassify_InvalidInput(t *testing.T) {
	t.Run("unparsable birthdate", func(t *testing.T) {
		_, err := Classify("15/06/2010", DeclaredChild, classifyNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("future birthdate", func(t *testing.T) {
		_, err := Classify("2030-01-01", DeclaredChild, classifyNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := Classify("2010-01-01", DeclaredRole("admin"), classifyNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// Leap-day birthdays roll over on March 1 in non-leap years.
func TestAgeAt_LeapDay(t *testing.T) {
	born := time.Date(2012, 2, 29, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 12, AgeAt(born, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, AgeAt(born, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}
