package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/database"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/parsers"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/processors"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "symbol,side,qty,price,date\nAAPL,buy,10,100,2024-01-01\nAAPL,buy,10,200,2024-01-02\nAAPL,sell,5,150,2024-01-03\nMSFT,b,1,400,2024-01-04\n"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T, fs afero.Fs) (UploadService, *sql.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewUploadService(db, NewFileStore(fs), processors.NewTradeProcessor(), cache.New(time.Minute, time.Minute))
	return svc, db
}

func TestUploadService_ProcessUploadStoresEverything(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, _ := newTestService(t, fs)
	ctx := context.Background()

	res, err := svc.ProcessUpload(ctx, []byte(sampleCSV), "fills.csv", models.FormatAuto)
	require.NoError(t, err)

	assert.True(t, res.Stored)
	assert.Empty(t, res.StorageError)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 4, res.TotalTrades)
	assert.Equal(t, processors.FileHash([]byte(sampleCSV)), res.FileHash)
	assert.Equal(t, "fills.csv", res.Bundle.FileName)
	require.Len(t, res.Bundle.Summary, 2)
	assert.Equal(t, "AAPL", res.Bundle.Summary[0].Symbol)
	assert.Equal(t, 2250.0, res.Bundle.Summary[0].NetValue)

	name, ok := NameFromURL(res.FileURL)
	require.True(t, ok)
	f, err := svc.OpenFile(name)
	require.NoError(t, err)
	raw, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(raw))

	got, err := svc.GetSummary(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Bundle, got.Bundle)
	assert.Equal(t, 4, got.TotalTrades)

	list, err := svc.ListSummaries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)
}

func TestUploadService_DuplicateUploadIsFlagged(t *testing.T) {
	svc, _ := newTestService(t, afero.NewMemMapFs())
	ctx := context.Background()

	first, err := svc.ProcessUpload(ctx, []byte(sampleCSV), "a.csv", models.FormatCSV)
	require.NoError(t, err)
	second, err := svc.ProcessUpload(ctx, []byte(sampleCSV), "b.csv", models.FormatCSV)
	require.NoError(t, err)

	assert.Empty(t, first.DuplicateOf)
	assert.Equal(t, first.ID, second.DuplicateOf)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := svc.ListSummaries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUploadService_DuplicateLookupFailureIsLogged(t *testing.T) {
	svc, db := newTestService(t, afero.NewMemMapFs())
	_, err := db.Exec(`DROP TABLE trading_summaries`)
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := logger.ToContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	res, err := svc.ProcessUpload(ctx, []byte(sampleCSV), "fills.csv", models.FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, res.DuplicateOf)
	assert.False(t, res.Stored)
	assert.Len(t, res.Bundle.Trades, 4)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="Duplicate check failed"`)
	assert.Contains(t, buf.String(), `msg="Processed trades could not be stored"`)
}

func TestUploadService_StorageFailureKeepsResult(t *testing.T) {
	svc, db := newTestService(t, afero.NewReadOnlyFs(afero.NewMemMapFs()))

	res, err := svc.ProcessUpload(context.Background(), []byte(sampleCSV), "fills.csv", models.FormatAuto)
	require.NoError(t, err)
	assert.False(t, res.Stored)
	assert.Contains(t, res.StorageError, ErrStorageFailed.Error())
	assert.Empty(t, res.ID)
	assert.Len(t, res.Bundle.Trades, 4)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trading_summaries`).Scan(&n))
	assert.Zero(t, n)
}

func TestUploadService_ParsingErrors(t *testing.T) {
	svc, _ := newTestService(t, afero.NewMemMapFs())
	ctx := context.Background()

	_, err := svc.ProcessUpload(ctx, []byte("{not json"), "x.json", models.FormatAuto)
	assert.ErrorIs(t, err, ErrParsingFailed)
	assert.True(t, parsers.IsFormatError(err))

	_, err = svc.ProcessUpload(ctx, []byte("symbol,qty\n"), "x.csv", models.FormatAuto)
	assert.ErrorIs(t, err, ErrParsingFailed)
	assert.ErrorIs(t, err, processors.ErrEmptyResult)
}

func TestUploadService_Preview(t *testing.T) {
	svc, db := newTestService(t, afero.NewMemMapFs())

	bundle, err := svc.Preview(context.Background(), `[{"ticker":"X","qty":-2,"price":3}]`, "inline", models.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "inline", bundle.FileName)
	require.Len(t, bundle.Trades, 1)
	assert.Equal(t, models.SideSell, bundle.Trades[0].Side)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trading_summaries`).Scan(&n))
	assert.Zero(t, n, "preview never persists")
}

func TestUploadService_DeleteSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, _ := newTestService(t, fs)
	ctx := context.Background()

	res, err := svc.ProcessUpload(ctx, []byte(sampleCSV), "fills.csv", models.FormatAuto)
	require.NoError(t, err)
	name, _ := NameFromURL(res.FileURL)

	require.NoError(t, svc.DeleteSummary(ctx, res.ID))

	_, err = svc.GetSummary(ctx, res.ID)
	assert.True(t, errors.Is(err, ErrSummaryNotFound))

	exists, err := afero.Exists(fs, filepath.ToSlash(FilesDir+"/"+name))
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := svc.ListSummaries(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.DeleteSummary(ctx, res.ID), ErrSummaryNotFound)
}

func TestUploadService_InvalidUTF8IsReplaced(t *testing.T) {
	svc, _ := newTestService(t, afero.NewMemMapFs())
	content := append([]byte("symbol,qty\nAB"), 0xff)
	content = append(content, []byte(",1\n")...)

	res, err := svc.ProcessUpload(context.Background(), content, "bad.csv", models.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "AB\uFFFD", res.Bundle.Trades[0].Symbol)
}
