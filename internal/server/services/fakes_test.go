package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/barcodekeeper/internal/common"
	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/models"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/collected"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/keys"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/masterdata"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/xmlstaging"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func limit(n int64) *int64 { return &n }

// memStore is an in-memory stand-in for the database shared by the fake
// repositories. It does not model transactions; tests assert commit and
// rollback through sqlmock.
type memStore struct {
	mu sync.Mutex

	keys      map[string]*models.Key
	tokens    map[string]*models.Token
	master    []*memMaster
	valid     map[int64][]string
	collected []*memCollected
	serials   map[int64][]models.SerialQuantity
	xml       map[string]*models.XMLStaging
	nextID    int64

	lockErr         error
	countErr        error
	addValidErr     error
	addSerialErr    error
	lookupErr       error
	lookupCalls     int
	afterLookup     func(barcode string)
	removeAdsErr    error
	ensureErr       error
	collectedCreate int
}

type memMaster struct {
	token string
	rec   models.MasterRecord
}

type memCollected struct {
	token string
	rec   models.CollectedRecord
}

func newMemStore() *memStore {
	return &memStore{
		keys:    map[string]*models.Key{},
		tokens:  map[string]*models.Token{},
		valid:   map[int64][]string{},
		serials: map[int64][]models.SerialQuantity{},
		xml:     map[string]*models.XMLStaging{},
	}
}

func (s *memStore) addKey(k *models.Key) { s.keys[k.Key] = k }

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) tokensOf(key string) []*models.Token {
	var out []*models.Token
	for _, t := range s.tokens {
		if t.Key == key {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

type fakeRepoManager struct {
	s *memStore
}

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Keys(dbx.DBTX) keys.Repository                { return fakeKeys{m.s} }
func (m *fakeRepoManager) Tokens(dbx.DBTX) tokens.Repository            { return fakeTokens{m.s} }
func (m *fakeRepoManager) MasterData(dbx.DBTX) masterdata.Repository    { return fakeMaster{m.s} }
func (m *fakeRepoManager) Collected(dbx.DBTX) collected.Repository      { return fakeCollected{m.s} }
func (m *fakeRepoManager) XMLStaging(dbx.DBTX) xmlstaging.Repository    { return fakeXML{m.s} }

type fakeKeys struct{ s *memStore }

func (f fakeKeys) LockKey(_ context.Context, key string) (*models.Key, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.lockErr != nil {
		return nil, f.s.lockErr
	}
	k, ok := f.s.keys[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *k
	return &cp, nil
}

func (f fakeKeys) RemoveAdsByToken(_ context.Context, token string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.removeAdsErr != nil {
		return false, f.s.removeAdsErr
	}
	t, ok := f.s.tokens[token]
	if !ok {
		return false, common.ErrorNotFound
	}
	k, ok := f.s.keys[t.Key]
	if !ok {
		return false, common.ErrorNotFound
	}
	return k.RemoveAds, nil
}

func (f fakeKeys) EnsureExists(_ context.Context, key *models.Key) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.ensureErr != nil {
		return f.s.ensureErr
	}
	if _, ok := f.s.keys[key.Key]; !ok {
		cp := *key
		f.s.keys[key.Key] = &cp
	}
	return nil
}

type fakeTokens struct{ s *memStore }

func (f fakeTokens) CountByKey(_ context.Context, key string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.countErr != nil {
		return 0, f.s.countErr
	}
	return int64(len(f.s.tokensOf(key))), nil
}

func (f fakeTokens) Create(_ context.Context, t *models.Token) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.tokens[t.Token]; ok {
		return common.ErrConstraintViolation
	}
	cp := *t
	f.s.tokens[t.Token] = &cp
	return nil
}

func (f fakeTokens) CreateIfAbsent(_ context.Context, t *models.Token) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.tokens[t.Token]; ok {
		return false, nil
	}
	cp := *t
	f.s.tokens[t.Token] = &cp
	return true, nil
}

func (f fakeTokens) Transition(_ context.Context, token string, from, to models.TokenType) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tokens[token]
	if !ok || t.Type != from {
		return common.ErrInvalidTokenState
	}
	t.Type = to
	return nil
}

type fakeMaster struct{ s *memStore }

func (f fakeMaster) Create(_ context.Context, token string, item *models.MasterItem) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	id := f.s.id()
	it := *item
	it.SerialsValid = nil
	f.s.master = append(f.s.master, &memMaster{token: token, rec: models.MasterRecord{ID: id, MasterItem: it}})
	return id, nil
}

func (f fakeMaster) AddValidSerial(_ context.Context, masterID int64, serial string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.addValidErr != nil {
		return f.s.addValidErr
	}
	f.s.valid[masterID] = append(f.s.valid[masterID], serial)
	return nil
}

func (f fakeMaster) SelectByToken(_ context.Context, token string) ([]*models.MasterRecord, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.MasterRecord
	for _, m := range f.s.master {
		if m.token == token {
			rec := m.rec
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (f fakeMaster) SelectValidSerials(_ context.Context, token string) (map[int64][]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[int64][]string{}
	for _, m := range f.s.master {
		if m.token == token && len(f.s.valid[m.rec.ID]) > 0 {
			out[m.rec.ID] = append([]string(nil), f.s.valid[m.rec.ID]...)
		}
	}
	return out, nil
}

func (f fakeMaster) LookupBarcode(_ context.Context, barcode string) ([]*models.BarcodeInfo, error) {
	out, err := f.lookup(barcode)
	if hook := f.s.afterLookup; hook != nil {
		hook(barcode)
	}
	return out, err
}

func (f fakeMaster) lookup(barcode string) ([]*models.BarcodeInfo, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.lookupCalls++
	if f.s.lookupErr != nil {
		return nil, f.s.lookupErr
	}
	var out []*models.BarcodeInfo
	seen := map[models.BarcodeInfo]bool{}
	for _, m := range f.s.master {
		if m.rec.Barcode != barcode {
			continue
		}
		bi := models.BarcodeInfo{Name: m.rec.Name, AdvancedName: m.rec.AdvancedName, Unit: m.rec.Unit}
		if seen[bi] {
			continue
		}
		seen[bi] = true
		out = append(out, &bi)
	}
	return out, nil
}

type fakeCollected struct{ s *memStore }

func (f fakeCollected) Create(_ context.Context, token, barcode string, quantity int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.collectedCreate++
	id := f.s.id()
	f.s.collected = append(f.s.collected, &memCollected{token: token, rec: models.CollectedRecord{ID: id, Barcode: barcode, Quantity: quantity}})
	return id, nil
}

func (f fakeCollected) AddSerial(_ context.Context, itemID int64, sq *models.SerialQuantity) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.addSerialErr != nil {
		return f.s.addSerialErr
	}
	f.s.serials[itemID] = append(f.s.serials[itemID], *sq)
	return nil
}

func (f fakeCollected) SelectByToken(_ context.Context, token string) ([]*models.CollectedRecord, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.CollectedRecord
	for _, c := range f.s.collected {
		if c.token == token {
			rec := c.rec
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (f fakeCollected) SelectSerialOwners(_ context.Context, token string) (map[int64]struct{}, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[int64]struct{}{}
	for _, c := range f.s.collected {
		if c.token == token && len(f.s.serials[c.rec.ID]) > 0 {
			out[c.rec.ID] = struct{}{}
		}
	}
	return out, nil
}

func (f fakeCollected) SelectSerials(_ context.Context, itemID int64) ([]models.SerialQuantity, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]models.SerialQuantity(nil), f.s.serials[itemID]...), nil
}

type fakeXML struct{ s *memStore }

func (f fakeXML) Upsert(_ context.Context, x *models.XMLStaging) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *x
	f.s.xml[x.Token] = &cp
	return nil
}

func (f fakeXML) Get(_ context.Context, token string) (string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	x, ok := f.s.xml[token]
	if !ok {
		return "", common.ErrorNotFound
	}
	return x.Payload, nil
}
