package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/database"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/model"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/processors"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/services"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const fillsCSV = "symbol,side,qty,price,date\nAAPL,buy,10,100,2024-01-01\nAAPL,buy,10,200,2024-01-02\nAAPL,sell,5,150,2024-01-03\n"

func newTestRouter(t *testing.T, opts RouterOptions) http.Handler {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	svc := services.NewUploadService(db, services.NewFileStore(afero.NewMemMapFs()),
		processors.NewTradeProcessor(), cache.New(time.Minute, time.Minute))
	return NewRouter(NewUploadHandler(svc, 1<<20, "auto"), NewSummaryHandler(svc), opts)
}

func multipartUpload(t *testing.T, fileName string, content []byte, format string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if format != "" {
		require.NoError(t, mw.WriteField("format", format))
	}
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadFills(t *testing.T, h http.Handler) services.UploadResult {
	t.Helper()
	rec := serve(h, multipartUpload(t, "fills.csv", []byte(fillsCSV), "csv"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandleUpload_StoresAndSummarizes(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})
	res := uploadFills(t, h)

	assert.True(t, res.Stored)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, res.TotalTrades)
	assert.Equal(t, "fills.csv", res.Bundle.FileName)
	require.Len(t, res.Bundle.Summary, 1)
	assert.Equal(t, "AAPL", res.Bundle.Summary[0].Symbol)
	assert.Equal(t, 15.0, res.Bundle.Summary[0].NetQty)
	assert.Equal(t, 2250.0, res.Bundle.Summary[0].NetValue)
	assert.True(t, strings.HasPrefix(res.FileURL, services.FilesURLPrefix))
}

func TestHandleUpload_Rejections(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	tests := []struct {
		name     string
		fileName string
		content  []byte
		format   string
		status   int
		contains string
	}{
		{"malformed json", "broken.json", []byte("{not json"), "auto", http.StatusUnprocessableEntity, "invalid syntax"},
		{"empty file", "empty.csv", []byte{}, "", http.StatusUnprocessableEntity, "empty"},
		{"header only", "header.csv", []byte("symbol,side,qty,price\n"), "csv", http.StatusUnprocessableEntity, "no valid trades"},
		{"overflowing totals", "big.csv", []byte("symbol,side,qty,price\nB,sell,1e200,1e200\n"), "csv", http.StatusUnprocessableEntity, "numeric range"},
		{"binary content", "blob.csv", []byte{0x00, 0x01, 0x02, 'a'}, "", http.StatusBadRequest, "binary"},
		{"bad format", "fills.csv", []byte(fillsCSV), "xlsx", http.StatusBadRequest, "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, multipartUpload(t, tt.fileName, tt.content, tt.format))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, errorMessage(t, rec), tt.contains)
		})
	}
}

func TestHandleUpload_MissingFileField(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("format", "csv"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := serve(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePreview(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	payload, err := json.Marshal(PreviewRequest{
		Text:   `[{"ticker":"msft","action":"SELL","shares":"2","price":300}]`,
		Format: "json",
	})
	require.NoError(t, err)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/trades/preview", bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var bundle models.ProcessedBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "inline", bundle.FileName)
	require.Len(t, bundle.Trades, 1)
	assert.Equal(t, models.CanonicalTrade{Symbol: "msft", Side: models.SideSell, Quantity: 2, Price: 300}, bundle.Trades[0])
	require.Len(t, bundle.Summary, 1)
	assert.Equal(t, -2.0, bundle.Summary[0].NetQty)
	assert.Equal(t, -600.0, bundle.Summary[0].NetValue)

	_, err = time.Parse(models.ISOMillis, bundle.ProcessedAt)
	assert.NoError(t, err)

	list := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries", nil))
	require.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, "[]", list.Body.String(), "preview must not persist anything")
}

func TestHandlePreview_InvalidBody(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader(`{"text":"   "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader(`{"text":"{\"trades\":1}"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader(`{"text":"symbol,side,qty,price\nB,sell,1e200,1e200\n"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "numeric range")
}

func TestSummaryRoutes_Lifecycle(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})
	res := uploadFills(t, h)

	list := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries?limit=10", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var records []model.SummaryRecord
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, res.ID, records[0].ID)
	assert.Equal(t, 3, records[0].TotalTrades)

	get := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries/"+res.ID, nil))
	require.Equal(t, http.StatusOK, get.Code)
	etag := get.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "no-cache, private", get.Header().Get("Cache-Control"))

	cond := httptest.NewRequest(http.MethodGet, "/api/summaries/"+res.ID, nil)
	cond.Header.Set("If-None-Match", etag)
	notModified := serve(h, cond)
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Empty(t, notModified.Body.String())

	download := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries/"+res.ID+"/download", nil))
	require.Equal(t, http.StatusOK, download.Code)
	assert.Regexp(t, `attachment; filename=processed-trades-\d+\.json`, download.Header().Get("Content-Disposition"))
	var bundle models.ProcessedBundle
	require.NoError(t, json.Unmarshal(download.Body.Bytes(), &bundle))
	assert.Equal(t, res.Bundle, bundle)
	assert.Contains(t, download.Body.String(), "\n  \"fileName\": \"fills.csv\"")

	csvRec := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries/"+res.ID+"/summary.csv", nil))
	require.Equal(t, http.StatusOK, csvRec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", csvRec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(csvRec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "AAPL,"))

	file := serve(h, httptest.NewRequest(http.MethodGet, res.FileURL, nil))
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, fillsCSV, file.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", file.Header().Get("Content-Type"))

	del := serve(h, httptest.NewRequest(http.MethodDelete, "/api/summaries/"+res.ID, nil))
	assert.Equal(t, http.StatusNoContent, del.Code)

	gone := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries/"+res.ID, nil))
	assert.Equal(t, http.StatusNotFound, gone.Code)
	fileGone := serve(h, httptest.NewRequest(http.MethodGet, res.FileURL, nil))
	assert.Equal(t, http.StatusNotFound, fileGone.Code)
	again := serve(h, httptest.NewRequest(http.MethodDelete, "/api/summaries/"+res.ID, nil))
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func TestSummaryRoutes_BadInput(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries/3f2b6c1e-8d4a-4b7e-9f0a-1c2d3e4f5a6b", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/files/nope.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", errorMessage(t, rec))
}

func TestCSRFMiddleware(t *testing.T) {
	h := newTestRouter(t, RouterOptions{CSRFEnabled: true})
	previewBody := `{"text":"symbol,side,qty,price\nAAPL,buy,1,10\n","format":"csv"}`

	rejected := serve(h, httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader(previewBody)))
	assert.Equal(t, http.StatusForbidden, rejected.Code)

	tokenRec := serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, tokenRec.Code)
	var tokenBody map[string]string
	require.NoError(t, json.Unmarshal(tokenRec.Body.Bytes(), &tokenBody))
	token := tokenBody["csrfToken"]
	require.NotEmpty(t, token)
	cookies := tokenRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader(previewBody))
	req.Header.Set(csrfHeaderName, token)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	accepted := serve(h, req)
	assert.Equal(t, http.StatusOK, accepted.Code, accepted.Body.String())

	wrong := httptest.NewRequest(http.MethodPost, "/api/trades/preview", strings.NewReader(previewBody))
	wrong.Header.Set(csrfHeaderName, "forged")
	for _, c := range cookies {
		wrong.AddCookie(c)
	}
	assert.Equal(t, http.StatusForbidden, serve(h, wrong).Code)

	// Safe methods are not checked.
	list := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries", nil))
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestCORSMiddleware(t *testing.T) {
	h := newTestRouter(t, RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.Header.Set("Origin", "http://evil.example")
	rec = serve(h, other)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)})

	first := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	second := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestContextualLoggerMiddleware_SetsRequestID(t *testing.T) {
	var seen string
	h := ContextualLoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestSendServiceError_InternalCarriesRequestID(t *testing.T) {
	h := ContextualLoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendServiceError(w, r, errors.New("disk on fire"))
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/summaries", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	id := rec.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, "internal server error (request "+id+")", errorMessage(t, rec))
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}
