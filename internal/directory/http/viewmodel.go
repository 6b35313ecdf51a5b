package directoryhttp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/odyssey-erp/userdir/internal/directory"
)

// Option is one entry of a select control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// CardViewModel is one user card.
type CardViewModel struct {
	ID       int
	Name     string
	Username string
	Email    string
	Company  string
	City     string
	Zipcode  string
	Initials string
}

// ViewModel is the data rendered by pages/directory.html.
type ViewModel struct {
	Mode        directory.DisplayMode
	Loading     bool
	Empty       bool
	Populated   bool
	Error       string
	Search      string
	Cities      []Option
	Sorts       []Option
	Cards       []CardViewModel
	Total       int
	ResultLabel string
	Page        int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	ExportURL   string
	LoadedAt    time.Time
	Refresh     int
}

var sortLabels = []struct {
	key   directory.SortKey
	label string
}{
	{directory.SortByName, "Name"},
	{directory.SortByCompany, "Company"},
}

func buildViewModel(basePath string, res directory.Result) ViewModel {
	v := res.View
	vm := ViewModel{
		Mode:        res.Mode,
		Loading:     res.Mode == directory.ModeLoading,
		Empty:       res.Mode == directory.ModeEmpty,
		Populated:   res.Mode == directory.ModePopulated,
		Error:       res.Error,
		Search:      v.Query.Search,
		Total:       v.Total,
		ResultLabel: resultLabel(v.Total),
		Page:        v.Page,
		TotalPages:  v.TotalPages,
		HasPrev:     v.HasPrev,
		HasNext:     v.HasNext,
		ExportURL:   pageURL(basePath+"/export.csv", v.Query, 0),
		LoadedAt:    res.LoadedAt,
	}
	if vm.Loading {
		vm.Refresh = 2
	}
	if v.HasPrev {
		vm.PrevURL = pageURL(basePath, v.Query, v.Page-1)
	}
	if v.HasNext {
		vm.NextURL = pageURL(basePath, v.Query, v.Page+1)
	}

	vm.Cities = make([]Option, 0, len(v.Cities))
	for _, city := range v.Cities {
		label := city
		if city == directory.AllCities {
			label = "All cities"
		}
		vm.Cities = append(vm.Cities, Option{Value: city, Label: label, Selected: city == v.Query.City})
	}
	vm.Sorts = make([]Option, 0, len(sortLabels))
	for _, s := range sortLabels {
		vm.Sorts = append(vm.Sorts, Option{Value: string(s.key), Label: s.label, Selected: s.key == v.Query.Sort})
	}

	vm.Cards = make([]CardViewModel, 0, len(v.Items))
	for _, u := range v.Items {
		vm.Cards = append(vm.Cards, CardViewModel{
			ID:       u.ID,
			Name:     u.Name,
			Username: u.Username,
			Email:    u.Email,
			Company:  u.CompanyName(),
			City:     u.City(),
			Zipcode:  u.Zipcode(),
			Initials: initials(u.Name),
		})
	}
	return vm
}

// pageURL encodes q for path. A zero page omits the page parameter.
func pageURL(path string, q directory.Query, page int) string {
	values := url.Values{}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.City != "" && q.City != directory.AllCities {
		values.Set("city", q.City)
	}
	if q.Sort != "" && q.Sort != directory.SortByName {
		values.Set("sort", string(q.Sort))
	}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func resultLabel(total int) string {
	if total == 1 {
		return "1 user"
	}
	return fmt.Sprintf("%d users", total)
}

func initials(name string) string {
	var b strings.Builder
	for i, part := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
