package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottle-tracking-backend/internal/errs"
)

func TestValidate_Owner(t *testing.T) {
	testCases := []struct {
		name      string
		owner     Owner
		expectErr bool
		field     string
	}{
		{
			name:  "valid producer",
			owner: Owner{BottleIndex: 7, Account: "0xabc", Type: OwnerTypeProducer},
		},
		{
			name:      "negative bottle index",
			owner:     Owner{BottleIndex: -1, Account: "0xabc", Type: OwnerTypeProducer},
			expectErr: true,
			field:     "bottleIndex",
		},
		{
			name:      "missing account",
			owner:     Owner{BottleIndex: 1, Type: OwnerTypeRecycler},
			expectErr: true,
			field:     "account",
		},
		{
			name:      "unknown type",
			owner:     Owner{BottleIndex: 1, Account: "0xabc", Type: "admin"},
			expectErr: true,
			field:     "type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.owner)
			if !tc.expectErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tc.field, verr.Fields[0].Field)
		})
	}
}

func TestValidate_OwnerHookRunsBeforeWrite(t *testing.T) {
	o := &Owner{BottleIndex: -5, Account: "0xabc", Type: OwnerTypeConsumer}
	assert.ErrorIs(t, o.BeforeSave(nil), errs.ErrValidation)
}

func TestValidate_Watcher(t *testing.T) {
	assert.NoError(t, Validate(&Watcher{UserID: 1, BottleIndex: 0}))
	assert.ErrorIs(t, Validate(&Watcher{UserID: 0, BottleIndex: 3}), errs.ErrValidation)
}

func TestValidate_User(t *testing.T) {
	valid := User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", RoleID: RoleIDConsumer}
	assert.NoError(t, Validate(&valid))

	bad := valid
	bad.Email = "not-an-email"
	bad.RoleID = 9
	err := Validate(&bad)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, err.Error(), "email")
}

func TestValidateVar_DateString(t *testing.T) {
	const rfc3339 = "datetime=2006-01-02T15:04:05Z07:00"
	assert.NoError(t, ValidateVar("2024-05-01T10:00:00Z", rfc3339))
	assert.ErrorIs(t, ValidateVar("01/05/2024", rfc3339), errs.ErrValidation)
}
