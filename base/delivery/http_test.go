package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/marketapi/domain"
)

func doResp(t *testing.T, status int, data interface{}) (*httptest.ResponseRecorder, JsonResponse) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, MakeJsonResp(c, status, data))

	var body JsonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestMakeJsonRespSuccess(t *testing.T) {
	req := require.New(t)

	rec, body := doResp(t, http.StatusOK, map[string]string{"id": "listing-1"})
	req.Equal(http.StatusOK, rec.Code)
	req.Equal(JsonResponseStatusSuccess, body.Status)
}

func TestMakeJsonRespSentinelMapping(t *testing.T) {
	testcases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"bad param", domain.ErrBadParamInput, http.StatusBadRequest},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"state conflict", domain.ErrStateConflict, http.StatusConflict},
		{"expired", domain.ErrExpired, http.StatusGone},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			rec, body := doResp(t, http.StatusInternalServerError, tc.err)
			req.Equal(tc.code, rec.Code)
			req.Equal(JsonResponseStatusFail, body.Status)
			req.Equal(tc.err.Error(), body.Data)
		})
	}
}

func TestMakeJsonRespValidationError(t *testing.T) {
	req := require.New(t)

	err := domain.NewValidationError("title is required", "price must be positive")
	rec, body := doResp(t, http.StatusInternalServerError, err)
	req.Equal(http.StatusBadRequest, rec.Code)
	req.Equal("title is required; price must be positive", body.Data)
}
