package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondConflict(w, "слот занят")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, ErrorResponse{Code: http.StatusConflict, Message: "слот занят"}, body)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Status string `json:"status"`
	}

	var p payload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"paid"}`))
	require.NoError(t, DecodeJSON(r, &p))
	assert.Equal(t, "paid", p.Status)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"paid","extra":1}`))
	assert.Error(t, DecodeJSON(r, &p))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, DecodeJSON(r, &p), ErrEmptyBody)
}
