package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
		wantDetail string
	}{
		{"not found", fmt.Errorf("product not found: %w", ErrNotFound), 404, "Not Found", "product not found: resource not found"},
		{"validation", fmt.Errorf("invalid store id: %w", ErrValidation), 400, "Validation Failed", "invalid store id: validation failed"},
		{"unknown", errors.New("pool exhausted"), 500, "Internal Error", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var pd ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
			assert.Equal(t, tc.wantTitle, pd.Title)
			assert.Equal(t, tc.wantStatus, pd.Status)
			assert.Equal(t, tc.wantDetail, pd.Detail)
		})
	}
}
