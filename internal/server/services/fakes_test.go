package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/config"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/backupcodes"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/geopredictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/historicalyields"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/recommendations"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/seasonpredictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.AccessTokenValidityDuration = time.Hour
	cfg.RefreshTokenValidityDuration = 2 * time.Hour
	return NewUserService(db, rm, cfg, logging.Nop{})
}

// store is an in-memory database shared by the fake repositories.
type store struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*models.User
	codes   map[string]*models.BackupCode
	tokens  map[string]*models.RefreshToken
	quick   []models.Prediction
	geo     []models.GeographicPrediction
	season  []models.SeasonPrediction
	recs    []models.PlantingRecommendation
	history []models.HistoricalYield

	failWith error
}

func newStore() *store {
	return &store{
		users:  map[string]*models.User{},
		codes:  map[string]*models.BackupCode{},
		tokens: map[string]*models.RefreshToken{},
	}
}

func (s *store) nextID() string {
	s.seq++
	return fmt.Sprintf("id-%d", s.seq)
}

type fakeRepoManager struct {
	s *store
}

func newFakeRepoManager() *fakeRepoManager { return &fakeRepoManager{s: newStore()} }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return fakeUsers{m.s} }
func (m *fakeRepoManager) BackupCodes(dbx.DBTX) backupcodes.Repository  { return fakeCodes{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return fakeTokens{m.s}
}
func (m *fakeRepoManager) Predictions(dbx.DBTX) predictions.Repository { return fakeQuick{m.s} }
func (m *fakeRepoManager) GeoPredictions(dbx.DBTX) geopredictions.Repository {
	return fakeGeo{m.s}
}
func (m *fakeRepoManager) SeasonPredictions(dbx.DBTX) seasonpredictions.Repository {
	return fakeSeason{m.s}
}
func (m *fakeRepoManager) Recommendations(dbx.DBTX) recommendations.Repository {
	return fakeRecs{m.s}
}
func (m *fakeRepoManager) HistoricalYields(dbx.DBTX) historicalyields.Repository {
	return fakeHistory{m.s}
}

type fakeUsers struct{ s *store }

func (f fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	for _, x := range f.s.users {
		if x.Email == u.Email {
			return nil, common.ErrEmailExists
		}
	}
	c := *u
	c.ID = f.s.nextID()
	f.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (f fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f fakeUsers) GetByGoogleID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.GoogleID != "" && u.GoogleID == id })
}

func (f fakeUsers) update(id string, fn func(*models.User)) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (f fakeUsers) UpdateProfile(_ context.Context, in *models.User) error {
	return f.update(in.ID, func(u *models.User) {
		u.Name, u.Email, u.Location, u.Phone, u.Bio = in.Name, in.Email, in.Location, in.Phone, in.Bio
	})
}

func (f fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return f.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (f fakeUsers) LinkGoogle(_ context.Context, id, googleID string) error {
	return f.update(id, func(u *models.User) { u.GoogleID, u.IsGoogleUser = googleID, true })
}

func (f fakeUsers) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return f.update(id, func(u *models.User) { u.LastLogin = &at })
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.users, id)
	return nil
}

type fakeCodes struct{ s *store }

func (f fakeCodes) Replace(_ context.Context, userID string, hashes []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, c := range f.s.codes {
		if c.UserID == userID {
			delete(f.s.codes, id)
		}
	}
	for _, h := range hashes {
		id := f.s.nextID()
		f.s.codes[id] = &models.BackupCode{ID: id, UserID: userID, CodeHash: h}
	}
	return nil
}

func (f fakeCodes) FindUnused(_ context.Context, userID, hash string) (*models.BackupCode, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.codes {
		if c.UserID == userID && c.CodeHash == hash && c.UsedAt == nil {
			out := *c
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeCodes) MarkUsed(_ context.Context, id string, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.codes[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.UsedAt = &at
	return nil
}

func (f fakeCodes) CountUnused(_ context.Context, userID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, c := range f.s.codes {
		if c.UserID == userID && c.UsedAt == nil {
			n++
		}
	}
	return n, nil
}

type fakeTokens struct{ s *store }

func (f fakeTokens) Create(_ context.Context, userID, hash string, expires time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.tokens[hash] = &models.RefreshToken{ID: f.s.nextID(), UserID: userID, TokenHash: hash, ExpiresAt: expires}
	return nil
}

func (f fakeTokens) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tokens[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (f fakeTokens) DeleteByHash(_ context.Context, hash string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.tokens[hash]
	delete(f.s.tokens, hash)
	return ok, nil
}

func (f fakeTokens) DeleteExpired(_ context.Context, userID string, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, t := range f.s.tokens {
		if t.UserID == userID && t.Expired(now) {
			delete(f.s.tokens, k)
			n++
		}
	}
	return n, nil
}

func limited[T any](items []T, limit int) []T {
	out := make([]T, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type fakeQuick struct{ s *store }

func (f fakeQuick) Create(_ context.Context, p *models.Prediction) (*models.Prediction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *p
	c.ID = f.s.nextID()
	f.s.quick = append(f.s.quick, c)
	return &c, nil
}

func (f fakeQuick) ListByUser(_ context.Context, userID string, limit int) ([]models.Prediction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var mine []models.Prediction
	for _, p := range f.s.quick {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	return limited(mine, limit), nil
}

func (f fakeQuick) Stats(ctx context.Context, userID string) (*models.PredictionStats, error) {
	all, _ := f.ListByUser(ctx, userID, 0)
	st := &models.PredictionStats{Total: len(all)}
	for _, p := range all {
		st.AvgYield += p.PredictedYield / float64(len(all))
	}
	return st, nil
}

type fakeGeo struct{ s *store }

func (f fakeGeo) Create(_ context.Context, p *models.GeographicPrediction) (*models.GeographicPrediction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failWith != nil {
		return nil, f.s.failWith
	}
	c := *p
	c.ID = f.s.nextID()
	f.s.geo = append(f.s.geo, c)
	return &c, nil
}

func (f fakeGeo) ListByUser(_ context.Context, userID string, limit int) ([]models.GeographicPrediction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var mine []models.GeographicPrediction
	for _, p := range f.s.geo {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	return limited(mine, limit), nil
}

func (f fakeGeo) Stats(ctx context.Context, userID string) (*models.PredictionStats, error) {
	all, _ := f.ListByUser(ctx, userID, 0)
	st := &models.PredictionStats{Total: len(all)}
	locs := map[string]struct{}{}
	for i, p := range all {
		st.AvgYield += p.PredictedYield / float64(len(all))
		if i == 0 || p.PredictedYield > st.MaxYield {
			st.MaxYield = p.PredictedYield
		}
		if i == 0 || p.PredictedYield < st.MinYield {
			st.MinYield = p.PredictedYield
		}
		if p.Location != "" {
			locs[p.Location] = struct{}{}
		}
	}
	st.Locations = len(locs)
	return st, nil
}

type fakeSeason struct{ s *store }

func (f fakeSeason) Create(_ context.Context, p *models.SeasonPrediction) (*models.SeasonPrediction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *p
	c.ID = f.s.nextID()
	f.s.season = append(f.s.season, c)
	return &c, nil
}

func (f fakeSeason) ListByUser(_ context.Context, userID string, limit int) ([]models.SeasonPrediction, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var mine []models.SeasonPrediction
	for _, p := range f.s.season {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	return limited(mine, limit), nil
}

type fakeRecs struct{ s *store }

func (f fakeRecs) Create(_ context.Context, r *models.PlantingRecommendation) (*models.PlantingRecommendation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *r
	c.ID = f.s.nextID()
	f.s.recs = append(f.s.recs, c)
	return &c, nil
}

func (f fakeRecs) ListByUser(_ context.Context, userID string, limit int) ([]models.PlantingRecommendation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var mine []models.PlantingRecommendation
	for _, r := range f.s.recs {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	return limited(mine, limit), nil
}

type fakeHistory struct{ s *store }

func (f fakeHistory) DeleteAll(context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.history = nil
	return nil
}

func (f fakeHistory) Upsert(_ context.Context, rows []models.HistoricalYield) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.history = append(f.s.history, rows...)
	return len(rows), nil
}

func (f fakeHistory) YieldFor(_ context.Context, state, district, season string, year int) (float64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, h := range f.s.history {
		if h.State == state && h.District == district && h.Season == season && h.Year == year {
			return h.ActualYield, nil
		}
	}
	return 0, common.ErrorNotFound
}

func (f fakeHistory) match(flt historicalyields.Filter) []models.HistoricalYield {
	var out []models.HistoricalYield
	for _, h := range f.s.history {
		if h.State != flt.State || h.Season != flt.Season {
			continue
		}
		if flt.District != "" && h.District != flt.District {
			continue
		}
		if flt.FromYear != 0 && h.Year < flt.FromYear {
			continue
		}
		if flt.ToYear != 0 && h.Year > flt.ToYear {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (f fakeHistory) AverageYield(_ context.Context, flt historicalyields.Filter) (float64, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rows := f.match(flt)
	if len(rows) == 0 {
		return 0, false, nil
	}
	sum := 0.0
	for _, h := range rows {
		sum += h.ActualYield
	}
	return sum / float64(len(rows)), true, nil
}

func (f fakeHistory) ClimateAverage(_ context.Context, flt historicalyields.Filter) (*models.SeasonClimate, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rows := f.match(flt)
	if len(rows) == 0 {
		return nil, false, nil
	}
	n := float64(len(rows))
	c := &models.SeasonClimate{}
	for _, h := range rows {
		c.TempCMean += h.TempCMean / n
		c.DewpointCMean += h.DewpointCMean / n
		c.PrecipMMMean += h.PrecipMMMean / n
		c.PrecipMMSum += h.PrecipMMSum / n
		c.SSRDMJm2Mean += h.SSRDMJm2Mean / n
	}
	return c, true, nil
}

func (f fakeHistory) StatesDistricts(context.Context) ([]historicalyields.StateDistricts, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byState := map[string]map[string]struct{}{}
	for _, h := range f.s.history {
		if byState[h.State] == nil {
			byState[h.State] = map[string]struct{}{}
		}
		byState[h.State][h.District] = struct{}{}
	}
	var out []historicalyields.StateDistricts
	for st, ds := range byState {
		sd := historicalyields.StateDistricts{Name: st}
		for d := range ds {
			sd.Districts = append(sd.Districts, d)
		}
		sort.Strings(sd.Districts)
		out = append(out, sd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
