package web

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/catalog"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/auth"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
	"github.com/dmitrijs2005/cottonadvisor/internal/validation"
	"github.com/dmitrijs2005/cottonadvisor/internal/weather"
)

const (
	goodPassword = "cotton123"
	goodCode     = "123456"
	goodBackup   = "ABCD1234"
)

type fakeAccounts struct {
	users   map[string]*models.User
	deleted []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[string]*models.User{
		"u1": {ID: "u1", Name: "Asha", Email: "asha@example.com", PasswordHash: "x", Location: "Busia", MFAEnabled: true},
	}}
}

func (f *fakeAccounts) Signup(_ context.Context, in services.SignupInput) (*models.User, []string, error) {
	if len(in.Name) < 2 {
		return nil, nil, validation.Errors{"Name must be at least 2 characters long."}
	}
	for _, u := range f.users {
		if u.Email == in.Email {
			return nil, nil, common.ErrEmailExists
		}
	}
	u := &models.User{ID: "u2", Name: in.Name, Email: in.Email, PasswordHash: "x", MFAEnabled: true}
	f.users[u.ID] = u
	return u, []string{"AAAA1111", "BBBB2222"}, nil
}

func (f *fakeAccounts) MFASetup(_ context.Context, userID string) (*auth.Provisioning, error) {
	if _, ok := f.users[userID]; !ok {
		return nil, common.ErrorNotFound
	}
	return &auth.Provisioning{Secret: "SECRET", URL: "otpauth://totp/x", QRCode: "data:image/png;base64,AAAA"}, nil
}

func (f *fakeAccounts) VerifyNewUserMFA(_ context.Context, userID, code string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if code != goodCode {
		return nil, common.ErrInvalidMFACode
	}
	return u, nil
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email && password == goodPassword {
			return u, nil
		}
	}
	return nil, common.ErrInvalidCredentials
}

func (f *fakeAccounts) VerifyMFA(_ context.Context, userID, code, backup string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if code == goodCode || strings.EqualFold(backup, goodBackup) {
		return u, nil
	}
	return nil, common.ErrInvalidMFACode
}

func (f *fakeAccounts) GoogleLogin(_ context.Context, p services.GoogleProfile) (*models.User, []string, error) {
	for _, u := range f.users {
		if u.Email == p.Email {
			return u, nil, nil
		}
	}
	u := &models.User{ID: "g1", Name: p.Name, Email: p.Email, GoogleID: p.ID, IsGoogleUser: true}
	f.users[u.ID] = u
	return u, []string{"CCCC3333"}, nil
}

func (f *fakeAccounts) GetUser(_ context.Context, userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeAccounts) RegenerateBackupCodes(context.Context, string) ([]string, error) {
	return []string{"DDDD4444"}, nil
}

func (f *fakeAccounts) BackupCodesRemaining(context.Context, string) (int, error) { return 7, nil }

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID string, in services.ProfileInput) (*models.User, error) {
	if in.Name == "" {
		return nil, validation.Errors{"Please fill in all required fields correctly."}
	}
	u := f.users[userID]
	u.Name, u.Email, u.Location = in.Name, in.Email, in.Location
	return u, nil
}

func (f *fakeAccounts) ChangePassword(_ context.Context, _ string, in services.ChangePasswordInput) error {
	if in.Current != goodPassword {
		return common.ErrInvalidCredentials
	}
	return nil
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, userID string) error {
	delete(f.users, userID)
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeAdvisor struct {
	quick    []models.Prediction
	geoErr   error
	seasonQs []services.SeasonQuery
}

func (f *fakeAdvisor) ModelInfo() services.ModelInfo {
	return services.ModelInfo{Version: "test", R2: 0.621, RMSE: 0.772, SoilClasses: []string{"Red", "Black"}}
}

func (f *fakeAdvisor) Catalog() *catalog.Catalog {
	return catalog.New([]catalog.State{{Name: "Maharashtra", Districts: []string{"Nagpur", "Akola"}}})
}

func (f *fakeAdvisor) Quick(_ context.Context, userID string, c agronomy.FieldConditions) (*models.Prediction, error) {
	est := agronomy.Heuristic(c)
	p := models.Prediction{UserID: userID, PredictedYield: est.YieldPercent, EstimatedProduction: est.EstimatedProduction}
	f.quick = append(f.quick, p)
	return &p, nil
}

func (f *fakeAdvisor) QuickHistory(context.Context, string) ([]models.Prediction, error) {
	return f.quick, nil
}

func (f *fakeAdvisor) QuickStats(context.Context, string) (*services.QuickStats, error) {
	return &services.QuickStats{Total: len(f.quick)}, nil
}

func (f *fakeAdvisor) Geographic(_ context.Context, _ string, site agronomy.SiteConditions) (*agronomy.GeographicEstimate, error) {
	if f.geoErr != nil {
		return nil, f.geoErr
	}
	return &agronomy.GeographicEstimate{
		Site: site, PredictedYield: 2.5, LowerBound: 0.99, UpperBound: 4.01,
		RainfallZone: agronomy.RainfallZone(site.AnnualRain),
	}, nil
}

func (f *fakeAdvisor) GeographicHistory(context.Context, string) ([]models.GeographicPrediction, error) {
	return []models.GeographicPrediction{{Location: "Busia", PredictedYield: 2.5, CreatedAt: time.Now()}}, nil
}

func (f *fakeAdvisor) Dashboard(context.Context, string) (*services.Dashboard, error) {
	return &services.Dashboard{Total: 3, AvgYield: 2.4, Farms: 2}, nil
}

func (f *fakeAdvisor) OptimalPlanting(_ context.Context, _ string, site agronomy.SiteConditions) (*agronomy.PlantingScan, error) {
	best := []agronomy.MonthlyEstimate{{Month: "March", MonthNum: 3, PredictedYield: 2.6, Season: agronomy.SeasonLongRains}}
	return &agronomy.PlantingScan{Location: site.Location, AnnualRain: site.AnnualRain, Monthly: best, Best: best}, nil
}

func (f *fakeAdvisor) Season(_ context.Context, _ string, q services.SeasonQuery) (*services.SeasonOutcome, error) {
	f.seasonQs = append(f.seasonQs, q)
	if q.District == "Pune" {
		return nil, common.ErrValidation
	}
	return &services.SeasonOutcome{
		Estimate:      agronomy.SeasonEstimate{Request: agronomy.SeasonRequest{State: q.State, District: q.District, Season: q.Season, Year: q.Year}, PredictedYield: 2.5},
		ClimateSource: services.ClimateFromDistrict,
	}, nil
}

func (f *fakeAdvisor) SeasonHistory(context.Context, string) ([]models.SeasonPrediction, error) {
	return nil, nil
}

func (f *fakeAdvisor) PlantingWindows(context.Context, string, services.SeasonQuery) (*agronomy.WindowPlan, error) {
	return nil, common.ErrModelUnavailable
}

func (f *fakeAdvisor) Recommendations(context.Context, string) ([]models.PlantingRecommendation, error) {
	return []models.PlantingRecommendation{{Kind: models.RecommendationMonthly, Location: "Busia", BestPeriod: "March", BestScore: 2.6}}, nil
}

type fakeExamples struct{}

func (fakeExamples) BuildExample(_ context.Context, key string) weather.Example {
	r := weather.LookupRegion(key)
	return weather.Example{Key: r.Key, Name: r.Name, Source: weather.ResultFallback, Site: agronomy.SiteConditions{
		Location: r.Name, TempC: r.Fallback.TempC, AnnualRain: r.Fallback.AnnualRain, SoilType: r.SoilType,
	}}
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	accounts *fakeAccounts
	advisor  *fakeAdvisor
	pinger   *fakePinger
}

func newTestEnv(t *testing.T, google bool) *testEnv {
	t.Helper()
	env := &testEnv{accounts: newFakeAccounts(), advisor: &fakeAdvisor{}, pinger: &fakePinger{}}

	s, err := NewServer(Options{
		Accounts:      env.accounts,
		Advisor:       env.advisor,
		Examples:      fakeExamples{},
		DB:            env.pinger,
		Store:         NewSessionStore("test-secret", false),
		GoogleEnabled: google,
		AuthRateLimit: 1000,
	}, logging.Nop{})
	require.NoError(t, err)

	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return env
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) xhr(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// follow GETs the redirect target of resp.
func (e *testEnv) follow(t *testing.T, resp *http.Response) *http.Response {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return e.get(t, resp.Header.Get("Location"))
}

func doc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return d
}

func alerts(d *goquery.Document, kind string) []string {
	var out []string
	d.Find(".alert-" + kind).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// loginAs runs password and authenticator steps for u1.
func (e *testEnv) loginAs(t *testing.T) {
	t.Helper()
	resp := e.post(t, "/login", url.Values{"email": {"asha@example.com"}, "password": {goodPassword}})
	require.Equal(t, "/verify-mfa", resp.Header.Get("Location"))
	resp = e.post(t, "/verify-mfa", url.Values{"token": {goodCode}})
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
	// Land on the dashboard so its welcome flash is consumed.
	require.Equal(t, http.StatusOK, e.follow(t, resp).StatusCode)
}
