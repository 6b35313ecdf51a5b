package directoryhttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/userdir/internal/directory"
	"github.com/odyssey-erp/userdir/internal/view"
)

type stubService struct {
	status  directory.Status
	message string
	records []directory.User
	waited  bool
}

func (s *stubService) snapshotResult(q directory.Query) directory.Result {
	v := directory.Apply(s.records, q, 2)
	res := directory.Result{Status: s.status, Error: s.message, View: v}
	switch {
	case s.status == directory.StatusLoading:
		res.Mode = directory.ModeLoading
	case len(v.Items) == 0:
		res.Mode = directory.ModeEmpty
	default:
		res.Mode = directory.ModePopulated
	}
	return res
}

func (s *stubService) View(q directory.Query) directory.Result {
	return s.snapshotResult(q)
}

func (s *stubService) WaitView(ctx context.Context, q directory.Query) (directory.Result, error) {
	s.waited = true
	return s.snapshotResult(q), nil
}

func (s *stubService) Export(q directory.Query) ([]directory.User, directory.Status) {
	return directory.Filtered(s.records, q), s.status
}

func sampleUsers() []directory.User {
	return []directory.User{
		{ID: 1, Name: "Alice Smith", Username: "alice", Email: "alice@example.com",
			Company: &directory.Company{Name: "Acme"}, Address: &directory.Address{City: "Paris", Zipcode: "75001"}},
		{ID: 2, Name: "Bob Stone", Username: "bob", Email: "bob@example.com",
			Company: &directory.Company{Name: "Zeta"}, Address: &directory.Address{City: "Lyon"}},
		{ID: 3, Name: "Carol King", Username: "carol", Email: "carol@example.com",
			Company: &directory.Company{Name: "Beta"}, Address: &directory.Address{City: "Paris"}},
	}
}

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(nil, svc, engine).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestDirectoryPageRendersCards(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusReady, records: sampleUsers()})

	rr := do(t, router, "/directory?city=Paris")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Alice Smith")
	assert.Contains(t, body, "Carol King")
	assert.NotContains(t, body, "Bob Stone")
	assert.Contains(t, body, "2 users")
	assert.Contains(t, body, "Page 1 of 1")
	assert.Contains(t, body, `<option value="Paris" selected>`)
	assert.NotContains(t, body, `http-equiv="refresh"`)
}

func TestDirectoryPagePaginates(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusReady, records: sampleUsers()})

	rr := do(t, router, "/directory")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Page 1 of 2")
	assert.Contains(t, body, `href="/directory?page=2"`)

	rr = do(t, router, "/directory?page=2")
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "Page 2 of 2")
	assert.Contains(t, body, `rel="prev"`)

	rr = do(t, router, "/directory?page=9")
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "Page 1 of 2")
	assert.NotContains(t, body, `rel="prev"`)
	assert.Contains(t, body, `href="/directory?page=2"`)
}

func TestDirectoryPageShowsLoadError(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusError, message: directory.LoadFailedMessage})

	rr := do(t, router, "/directory")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, directory.LoadFailedMessage)
	assert.Contains(t, body, "No users match your filters.")
	assert.Contains(t, body, "Page 1 of 1")
}

func TestDirectoryPageShowsLoading(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusLoading})

	rr := do(t, router, "/directory")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Loading users...")
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.NotContains(t, body, "No users match your filters.")
}

func TestDirectoryRejectsInvalidQuery(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusReady, records: sampleUsers()})

	for _, target := range []string{
		"/directory?sort=email",
		"/directory?page=two",
		"/directory?page=-1",
		"/directory?q=" + strings.Repeat("a", 201),
	} {
		rr := do(t, router, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestAPIUsersReturnsPage(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusReady, records: sampleUsers()})

	rr := do(t, router, "/api/users?sort=company&q=a")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, directory.StatusReady, resp.Status)
	assert.Equal(t, "company", resp.Query.Sort)
	assert.Equal(t, []string{"all", "Lyon", "Paris"}, resp.Cities)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "Acme", resp.Users[0].Company)
	assert.Equal(t, "Beta", resp.Users[1].Company)
}

func TestAPIUsersLoadingAndError(t *testing.T) {
	rr := do(t, newTestRouter(t, &stubService{status: directory.StatusLoading}), "/api/users")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"status":"loading"}`, rr.Body.String())

	rr = do(t, newTestRouter(t, &stubService{status: directory.StatusError, message: directory.LoadFailedMessage}), "/api/users")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), directory.LoadFailedMessage)
}

func TestAPIUsersWaitsWhenAsked(t *testing.T) {
	svc := &stubService{status: directory.StatusReady, records: sampleUsers()}
	rr := do(t, newTestRouter(t, svc), "/api/users?wait=1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, svc.waited)
}

func TestAPIUsersInvalidQuery(t *testing.T) {
	rr := do(t, newTestRouter(t, &stubService{status: directory.StatusReady}), "/api/users?sort=zip")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportWritesFilteredCSV(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusReady, records: sampleUsers()})

	rr := do(t, router, "/directory/export.csv?city=Paris&sort=company")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))

	rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Alice Smith", rows[1][1])
	assert.Equal(t, "Carol King", rows[2][1])
}

func TestExportUnavailableUntilReady(t *testing.T) {
	router := newTestRouter(t, &stubService{status: directory.StatusLoading})
	rr := do(t, router, "/directory/export.csv")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
}

func TestNilServiceNotImplemented(t *testing.T) {
	router := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotImplemented, do(t, router, "/directory").Code)
	assert.Equal(t, http.StatusNotImplemented, do(t, router, "/api/users").Code)
}

func TestPageURL(t *testing.T) {
	q := directory.Query{Search: "a b", City: "Paris", Sort: directory.SortByCompany}
	assert.Equal(t, "/directory?city=Paris&page=3&q=a+b&sort=company", pageURL("/directory", q, 3))
	assert.Equal(t, "/directory", pageURL("/directory", directory.Query{City: directory.AllCities, Sort: directory.SortByName}, 1))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "LG", initials("Leanne Graham"))
	assert.Equal(t, "MD", initials("mrs. Dennis Schulist"))
	assert.Equal(t, "É", initials("élodie"))
	assert.Equal(t, "", initials("   "))
}

func TestBuildViewModelLabels(t *testing.T) {
	res := directory.Result{
		Mode:   directory.ModePopulated,
		Status: directory.StatusReady,
		View: directory.View{
			Cities:     []string{directory.AllCities, "Paris"},
			Query:      directory.Query{City: directory.AllCities, Sort: directory.SortByName, Page: 1},
			Items:      sampleUsers()[:1],
			Total:      1,
			Page:       1,
			TotalPages: 1,
		},
	}
	vm := buildViewModel(basePath, res)
	assert.Equal(t, "1 user", vm.ResultLabel)
	assert.Equal(t, "All cities", vm.Cities[0].Label)
	assert.True(t, vm.Cities[0].Selected)
	assert.True(t, vm.Sorts[0].Selected)
	assert.Empty(t, vm.PrevURL)
	assert.Empty(t, vm.NextURL)
	assert.Equal(t, "AS", vm.Cards[0].Initials)
	assert.Equal(t, 0, vm.Refresh)
}
