package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		requireUser bool
		wantFields  []string
		wantMessage string
	}{
		{name: "valid", req: Request{Brand: "Acme", Description: "stainless steel kitchen knife", UserID: "u1"}},
		{name: "exactly ten characters", req: Request{Description: "0123456789"}},
		{name: "empty brand allowed", req: Request{Description: "cotton t-shirt, knitted"}},
		{
			name:        "short description",
			req:         Request{Description: "knife"},
			wantFields:  []string{"description"},
			wantMessage: "description must be at least 10 characters in length",
		},
		{
			name:       "whitespace padding does not count",
			req:        Request{Description: "   knife      "},
			wantFields: []string{"description"},
		},
		{
			name:       "multibyte counted as runes",
			req:        Request{Description: "ñandú ñandú"},
			wantFields: nil,
		},
		{
			name:       "long description",
			req:        Request{Description: strings.Repeat("a", 2001)},
			wantFields: []string{"description"},
		},
		{
			name:       "long brand",
			req:        Request{Brand: strings.Repeat("b", 121), Description: "a valid product description"},
			wantFields: []string{"brand"},
		},
		{
			name:        "user required",
			req:         Request{Description: "a valid product description"},
			requireUser: true,
			wantFields:  []string{"userId"},
			wantMessage: "userId is a required field",
		},
		{
			name:       "several fields",
			req:        Request{Brand: strings.Repeat("b", 121), Description: "short"},
			wantFields: []string{"brand", "description"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewValidator(tc.requireUser)
			require.NoError(t, err)

			_, err = v.Validate(tc.req)
			if len(tc.wantFields) == 0 {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tc.wantFields, fields)
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, verr.Fields[0].Message)
				assert.Contains(t, verr.Error(), tc.wantMessage)
			}
		})
	}
}

func TestValidateTrims(t *testing.T) {
	v, err := NewValidator(false)
	require.NoError(t, err)

	req, err := v.Validate(Request{Brand: "  Acme ", Description: "\tsteel kitchen knife\n", UserID: " u1 "})
	require.NoError(t, err)
	assert.Equal(t, Request{Brand: "Acme", Description: "steel kitchen knife", UserID: "u1"}, req)
}
