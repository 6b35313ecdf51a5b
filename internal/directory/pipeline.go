package directory

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Cities lists the distinct city names found in records, sorted and
// prefixed with AllCities.
func Cities(records []User) []string {
	seen := make(map[string]struct{}, len(records))
	cities := make([]string, 0, len(records))
	for _, u := range records {
		city := u.City()
		if city == "" {
			continue
		}
		if _, ok := seen[city]; ok {
			continue
		}
		seen[city] = struct{}{}
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return append([]string{AllCities}, cities...)
}

// Search keeps records whose name, email, username or company name contains
// text, ignoring case. Blank text keeps every record.
func Search(records []User, text string) []User {
	if strings.TrimSpace(text) == "" {
		return append([]User(nil), records...)
	}
	fold := cases.Fold()
	needle := fold.String(text)
	out := make([]User, 0, len(records))
	for _, u := range records {
		if matches(fold, needle, u) {
			out = append(out, u)
		}
	}
	return out
}

func matches(fold cases.Caser, needle string, u User) bool {
	for _, field := range [...]string{u.Name, u.Email, u.Username, u.CompanyName()} {
		if field != "" && strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

// FilterCity keeps records located in city. AllCities keeps everything.
func FilterCity(records []User, city string) []User {
	if city == "" || city == AllCities {
		return append([]User(nil), records...)
	}
	out := make([]User, 0, len(records))
	for _, u := range records {
		if u.City() == city {
			out = append(out, u)
		}
	}
	return out
}

// SortUsers returns a stably sorted copy of records.
func SortUsers(records []User, key SortKey) []User {
	out := append([]User(nil), records...)
	less := func(i, j int) bool { return out[i].Name < out[j].Name }
	if key == SortByCompany {
		less = func(i, j int) bool { return out[i].CompanyName() < out[j].CompanyName() }
	}
	sort.SliceStable(out, less)
	return out
}

// TotalPages returns ceil(total/size), never less than one.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate slices records into the requested page. Out of range page numbers
// fall back to the first page.
func Paginate(records []User, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := TotalPages(len(records), size)
	clamped := false
	if page < 1 || page > totalPages {
		clamped = page > totalPages
		page = 1
	}
	start := (page - 1) * size
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	if start > end {
		start = end
	}
	return Page{
		Items:      records[start:end:end],
		Number:     page,
		Size:       size,
		TotalPages: totalPages,
		Clamped:    clamped,
	}
}

// Apply runs search, city filter, sort and pagination over records.
func Apply(records []User, q Query, size int) View {
	q = NormalizeQuery(q)
	filtered := FilterCity(Search(records, q.Search), q.City)
	sorted := SortUsers(filtered, q.Sort)
	page := Paginate(sorted, q.Page, size)
	q.Page = page.Number
	return View{
		Cities:     Cities(records),
		Query:      q,
		Items:      page.Items,
		Total:      len(sorted),
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages,
		HasPrev:    page.Number > 1,
		HasNext:    page.Number < page.TotalPages,
		Clamped:    page.Clamped,
	}
}

// Filtered returns the searched, city-filtered and sorted records without
// pagination.
func Filtered(records []User, q Query) []User {
	q = NormalizeQuery(q)
	return SortUsers(FilterCity(Search(records, q.Search), q.City), q.Sort)
}
