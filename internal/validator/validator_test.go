package validator

import (
	"testing"

	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	ID   string   `validate:"required,objectid"`
	Tags []string `validate:"dive,tagname"`
}

func TestValidateRequest(t *testing.T) {
	NewValidator()

	testCases := []struct {
		name    string
		req     sampleRequest
		wantErr bool
	}{
		{
			name: "valid_request",
			req:  sampleRequest{ID: "65f1c2a9e4b0a1b2c3d4e5f6", Tags: []string{"inbox", "work-items"}},
		},
		{
			name:    "bad_object_id",
			req:     sampleRequest{ID: "not-an-id"},
			wantErr: true,
		},
		{
			name:    "bad_tag",
			req:     sampleRequest{ID: "65f1c2a9e4b0a1b2c3d4e5f6", Tags: []string{"Has Spaces"}},
			wantErr: true,
		},
		{
			name:    "missing_id",
			req:     sampleRequest{},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.req)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, ierr.IsValidation(err))
		})
	}
}

func TestValidateObjectID(t *testing.T) {
	oid, err := ValidateObjectID("65f1c2a9e4b0a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, "65f1c2a9e4b0a1b2c3d4e5f6", oid.Hex())

	_, err = ValidateObjectID("zzz")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
