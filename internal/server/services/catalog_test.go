package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/cache"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newCatalog(t *testing.T, s *memStore, c cache.Cache) (*CatalogService, func()) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	svc := NewCatalogService(db, &fakeRepoManager{s}, c, time.Minute, logging.Nop{})
	return svc, func() {
		t.Helper()
		require.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestPutMasterData_RoundTripWithWhitelist(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	s := newMemStore()
	s.addKey(&models.Key{Key: keyK})
	svc := NewCatalogService(db, &fakeRepoManager{s}, nil, time.Minute, logging.Nop{})
	ctx := context.Background()

	in := []*models.MasterItem{
		{Barcode: "999", Name: "Widget", Serial: true, SerialsValid: []string{"A1", "A2"}},
	}

	token, err := svc.PutMasterData(ctx, keyK, in, "192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeMasterData, s.tokens[token].Type)

	got, err := svc.GetMasterData(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []*models.MasterItem{
		{Barcode: "999", Name: "Widget", Serial: true, SerialsValid: []string{"A1", "A2"}},
	}, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutMasterData_OptionalFieldsAndSerialFlag(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	s := newMemStore()
	s.addKey(&models.Key{Key: keyK})
	svc := NewCatalogService(db, &fakeRepoManager{s}, nil, time.Minute, logging.Nop{})
	ctx := context.Background()

	in := []*models.MasterItem{
		{Barcode: "1", Name: "Plain"},
		{Barcode: "2", Name: "Boxed", AdvancedName: strPtr("Boxed 12x"), Unit: strPtr("box")},
		{Barcode: "3", Name: "Tracked", Serial: true},
		// a whitelist without the serial flag is not stored
		{Barcode: "4", Name: "Loose", SerialsValid: []string{"Z9"}},
	}

	token, err := svc.PutMasterData(ctx, keyK, in, "")
	require.NoError(t, err)
	assert.Empty(t, s.valid)

	got, err := svc.GetMasterData(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []*models.MasterItem{
		{Barcode: "1", Name: "Plain"},
		{Barcode: "2", Name: "Boxed", AdvancedName: strPtr("Boxed 12x"), Unit: strPtr("box")},
		{Barcode: "3", Name: "Tracked", Serial: true},
		{Barcode: "4", Name: "Loose"},
	}, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutMasterData_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name  string
		items []*models.MasterItem
	}{
		{name: "no barcode", items: []*models.MasterItem{{Barcode: "1", Name: "ok"}, {Name: "x"}}},
		{name: "no name", items: []*models.MasterItem{{Barcode: "1"}}},
		{name: "nil item", items: []*models.MasterItem{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addKey(&models.Key{Key: keyK})
			svc, verify := newCatalog(t, s, nil)

			token, err := svc.PutMasterData(context.Background(), keyK, tt.items, "")
			assert.ErrorIs(t, err, common.ErrMissingRequiredField)
			assert.Empty(t, token)
			assert.Empty(t, s.tokens, "no token is minted")
			assert.Empty(t, s.master)
			verify()
		})
	}
}

func TestPutMasterData_WhitelistFailureRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := newMemStore()
	s.addKey(&models.Key{Key: keyK})
	s.addValidErr = errors.Join(common.ErrConstraintViolation, errors.New("serials_valid_master_fkey"))
	svc := NewCatalogService(db, &fakeRepoManager{s}, nil, time.Minute, logging.Nop{})

	_, err := svc.PutMasterData(context.Background(), keyK, []*models.MasterItem{
		{Barcode: "999", Name: "Widget", Serial: true, SerialsValid: []string{"A1"}},
	}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConstraintViolation)
	assert.Contains(t, err.Error(), "item 0")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutMasterData_Denials(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := newMemStore()
	s.addKey(&models.Key{Key: keyK, TokensLimit: limit(1)})
	s.tokens["t1"] = &models.Token{Token: "t1", Key: keyK}
	svc := NewCatalogService(db, &fakeRepoManager{s}, nil, time.Minute, logging.Nop{})
	items := []*models.MasterItem{{Barcode: "1", Name: "n"}}

	_, err := svc.PutMasterData(context.Background(), keyK, items, "")
	assert.ErrorIs(t, err, common.ErrQuotaExceeded)

	_, err = svc.PutMasterData(context.Background(), keyOther, items, "")
	assert.ErrorIs(t, err, common.ErrUnknownKey)

	assert.Empty(t, s.master)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMasterData_UnknownTokenIsEmpty(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewCatalogService(db, &fakeRepoManager{newMemStore()}, nil, time.Minute, logging.Nop{})

	got, err := svc.GetMasterData(context.Background(), "9d7a1f3e-5b2c-4e8d-a6f0-1c3b5d7e9f20")
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMasterData_InvalidToken(t *testing.T) {
	svc, verify := newCatalog(t, newMemStore(), nil)

	_, err := svc.GetMasterData(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	verify()
}

func TestLookupBarcode_CachedAndInvalidatedByUpload(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	s := newMemStore()
	s.addKey(&models.Key{Key: keyK})
	c := cache.NewMemoryCache(time.Hour)
	defer c.Close()
	svc := NewCatalogService(db, &fakeRepoManager{s}, c, time.Minute, logging.Nop{})
	ctx := context.Background()

	_, err := svc.PutMasterData(ctx, keyK, []*models.MasterItem{{Barcode: "555", Name: "Bolt"}}, "")
	require.NoError(t, err)

	got, err := svc.LookupBarcode(ctx, "555")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bolt", got[0].Name)

	_, err = svc.LookupBarcode(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, 1, s.lookupCalls, "second lookup is served from cache")

	_, err = svc.PutMasterData(ctx, keyK, []*models.MasterItem{{Barcode: "555", Name: "Bolt M8", Unit: strPtr("pcs")}}, "")
	require.NoError(t, err)

	got, err = svc.LookupBarcode(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, 2, s.lookupCalls)
	require.Len(t, got, 2)
	assert.Equal(t, "Bolt M8", got[1].Name)
	assert.Equal(t, "pcs", *got[1].Unit)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupBarcode_UploadDuringLookupIsNotHidden(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	s := newMemStore()
	s.addKey(&models.Key{Key: keyK})
	c := cache.NewMemoryCache(time.Hour)
	defer c.Close()
	svc := NewCatalogService(db, &fakeRepoManager{s}, c, time.Minute, logging.Nop{})
	ctx := context.Background()

	// the first lookup reads an empty result, then stalls until the upload
	// below has committed and invalidated
	read := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.afterLookup = func(string) {
		once.Do(func() {
			close(read)
			<-release
		})
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.LookupBarcode(ctx, "777")
		done <- err
	}()

	<-read
	_, err := svc.PutMasterData(ctx, keyK, []*models.MasterItem{{Barcode: "777", Name: "Nut"}}, "")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	got, err := svc.LookupBarcode(ctx, "777")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Nut", got[0].Name)
	assert.Equal(t, 2, s.lookupCalls, "stale result must not be cached")

	require.NoError(t, mock.ExpectationsWereMet())
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (brokenCache) Delete(context.Context, ...string) error { return errors.New("down") }
func (brokenCache) Close() error                            { return nil }

func TestLookupBarcode_CacheFaultsAreIgnored(t *testing.T) {
	s := newMemStore()
	s.master = append(s.master, &memMaster{token: "t", rec: models.MasterRecord{ID: 1, MasterItem: models.MasterItem{Barcode: "7", Name: "Nut"}}})
	svc, verify := newCatalog(t, s, brokenCache{})

	got, err := svc.LookupBarcode(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Nut", got[0].Name)
	verify()
}

func TestLookupBarcode_Errors(t *testing.T) {
	s := newMemStore()
	svc, verify := newCatalog(t, s, nil)

	_, err := svc.LookupBarcode(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrMissingRequiredField)

	s.lookupErr = errors.New("db error")
	_, err = svc.LookupBarcode(context.Background(), "1")
	assert.EqualError(t, err, "db error")
	verify()
}
