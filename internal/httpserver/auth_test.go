package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avishek-m/pricecompare/internal/authsvc"
	"github.com/avishek-m/pricecompare/internal/content"
)

type fakeUserGeocoder struct {
	suggestions []string
}

func (f *fakeUserGeocoder) Autocomplete(ctx context.Context, query string) ([]string, error) {
	return f.suggestions, nil
}

type fakeUserStore struct {
	rows []content.Row
}

func (f *fakeUserStore) Select(ctx context.Context, table string, filter content.Row) ([]content.Row, error) {
	var out []content.Row
	for _, row := range f.rows {
		match := true
		for k, v := range filter {
			if row[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeUserStore) Insert(ctx context.Context, table string, row content.Row) (content.Row, error) {
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeUserStore) Update(ctx context.Context, table string, match, newValues content.Row) (int64, error) {
	return 0, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, table string, match content.Row) (int64, error) {
	return 0, nil
}

func newTestAuthHandler() *AuthHandler {
	svc := authsvc.New(&fakeUserGeocoder{suggestions: []string{"Koramangala"}}, &fakeUserStore{}, discardLogger())
	return NewAuthHandler(svc, discardLogger())
}

func TestAutocomplete_ReturnsSuggestions(t *testing.T) {
	h := newTestAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/autocomplete", bytes.NewBufferString(`{"query":"Kor"}`))
	rec := httptest.NewRecorder()
	h.Autocomplete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
}

func TestSignup_CreatesAccount(t *testing.T) {
	h := newTestAuthHandler()

	body := `{"name":"Asha","mobile":"9900000001","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSignup_RejectsShortPassword(t *testing.T) {
	h := newTestAuthHandler()

	body := `{"name":"Asha","mobile":"9900000001","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_FailsForUnknownMobile(t *testing.T) {
	h := newTestAuthHandler()

	body := `{"mobile":"9900000099","password":"whatever1"}`
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_RejectsMalformedJSON(t *testing.T) {
	h := newTestAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString("{bad"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOTP_RequiresConfiguredSender(t *testing.T) {
	h := newTestAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/send-otp", bytes.NewBufferString(`{"mobile":"9900000001"}`))
	rec := httptest.NewRecorder()
	h.SendOTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConfirmOTP_RejectsUnknownMobile(t *testing.T) {
	h := newTestAuthHandler()

	body := `{"mobile":"9900000001","code":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/confirm-otp", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ConfirmOTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
