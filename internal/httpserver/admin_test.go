package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avishek-m/pricecompare/internal/adminsvc"
	"github.com/avishek-m/pricecompare/internal/analytics"
	"github.com/avishek-m/pricecompare/internal/content"
	"github.com/avishek-m/pricecompare/pkg/auth"
)

type fakeContentStore struct {
	rows map[string][]content.Row
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{rows: map[string][]content.Row{}}
}

func (f *fakeContentStore) Select(ctx context.Context, table string, filter content.Row) ([]content.Row, error) {
	return f.rows[table], nil
}

func (f *fakeContentStore) Insert(ctx context.Context, table string, row content.Row) (content.Row, error) {
	f.rows[table] = append(f.rows[table], row)
	return row, nil
}

func (f *fakeContentStore) Update(ctx context.Context, table string, match, newValues content.Row) (int64, error) {
	rows := f.rows[table]
	var affected int64
	for i, row := range rows {
		if rowMatches(row, match) {
			for k, v := range newValues {
				rows[i][k] = v
			}
			affected++
		}
	}
	return affected, nil
}

func (f *fakeContentStore) Delete(ctx context.Context, table string, match content.Row) (int64, error) {
	rows := f.rows[table]
	var kept []content.Row
	var affected int64
	for _, row := range rows {
		if rowMatches(row, match) {
			affected++
			continue
		}
		kept = append(kept, row)
	}
	f.rows[table] = kept
	return affected, nil
}

func rowMatches(row, match content.Row) bool {
	for k, v := range match {
		if row[k] != v {
			return false
		}
	}
	return true
}

func newTestAdminHandler(store *fakeContentStore) (*AdminHandler, *adminsvc.Service) {
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	admin := adminsvc.New(store, jwt, discardLogger())
	return NewAdminHandler(admin, store, analytics.NewAggregator(), discardLogger()), admin
}

func TestAdminLogin_SucceedsWithValidCredentials(t *testing.T) {
	store := newFakeContentStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	require.NoError(t, err)
	store.rows["admin_sessions"] = []content.Row{{"username": "admin", "password_hash": string(hash)}}
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(`{"username":"admin","password":"hunter22"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminLogin_RejectsWrongPassword(t *testing.T) {
	store := newFakeContentStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	require.NoError(t, err)
	store.rows["admin_sessions"] = []content.Row{{"username": "admin", "password_hash": string(hash)}}
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(`{"username":"admin","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCustomerAnalytics_ReturnsSnapshot(t *testing.T) {
	store := newFakeContentStore()
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/customer_analytics", nil)
	rec := httptest.NewRecorder()
	h.CustomerAnalytics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
}

func TestAdminList_ReturnsRows(t *testing.T) {
	store := newFakeContentStore()
	store.rows["offers"] = []content.Row{{"id": int64(1), "title": "10% off"}}
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/offers", nil)
	rec := httptest.NewRecorder()
	h.List("offers")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreate_InsertsRow(t *testing.T) {
	store := newFakeContentStore()
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/offers", bytes.NewBufferString(`{"title":"flash sale"}`))
	rec := httptest.NewRecorder()
	h.Create("offers")(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.rows["offers"], 1)
}

func withChiIDParam(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminUpdate_ModifiesMatchingRow(t *testing.T) {
	store := newFakeContentStore()
	store.rows["offers"] = []content.Row{{"id": int64(1), "title": "old"}}
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/offers/1", bytes.NewBufferString(`{"title":"new"}`))
	req = withChiIDParam(req, "1")
	rec := httptest.NewRecorder()
	h.Update("offers")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new", store.rows["offers"][0]["title"])
}

func TestAdminUpdate_UnknownIDReturns404(t *testing.T) {
	store := newFakeContentStore()
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/offers/99", bytes.NewBufferString(`{"title":"new"}`))
	req = withChiIDParam(req, "99")
	rec := httptest.NewRecorder()
	h.Update("offers")(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDelete_RemovesMatchingRow(t *testing.T) {
	store := newFakeContentStore()
	store.rows["offers"] = []content.Row{{"id": int64(1), "title": "old"}}
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/offers/1", nil)
	req = withChiIDParam(req, "1")
	rec := httptest.NewRecorder()
	h.Delete("offers")(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.rows["offers"], 0)
}

func TestUpdateBgImage_UpdatesURL(t *testing.T) {
	store := newFakeContentStore()
	store.rows["bgimage"] = []content.Row{{"id": int64(1), "image_url": "old.png"}}
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/bg_image/1", bytes.NewBufferString(`{"image_url":"new.png"}`))
	req = withChiIDParam(req, "1")
	rec := httptest.NewRecorder()
	h.UpdateBgImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new.png", store.rows["bgimage"][0]["image_url"])
}

func TestUpdateBgImage_RejectsEmptyURL(t *testing.T) {
	store := newFakeContentStore()
	h, _ := newTestAdminHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/bg_image/1", bytes.NewBufferString(`{"image_url":""}`))
	req = withChiIDParam(req, "1")
	rec := httptest.NewRecorder()
	h.UpdateBgImage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
