// Package directory loads the user collection from the remote source and
// derives the searchable, filterable, sortable and paginated views over it.
package directory

import "time"

const (
	// AllCities is the city selector value that disables the city filter.
	AllCities = "all"
	// DefaultPageSize is the number of cards rendered per page.
	DefaultPageSize = 6
)

// SortKey selects the ordering applied to the filtered records.
type SortKey string

const (
	// SortByName orders records by their display name.
	SortByName SortKey = "name"
	// SortByCompany orders records by company name, missing companies first.
	SortByCompany SortKey = "company"
)

// Valid reports whether the key is a supported sort key.
func (k SortKey) Valid() bool {
	return k == SortByName || k == SortByCompany
}

// Company is the optional employer of a user.
type Company struct {
	Name string `json:"name"`
}

// Address is the optional postal address of a user.
type Address struct {
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// User is a read-only record owned by the remote source.
type User struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Company  *Company `json:"company,omitempty"`
	Address  *Address `json:"address,omitempty"`
}

// CompanyName returns the company name or an empty string.
func (u User) CompanyName() string {
	if u.Company == nil {
		return ""
	}
	return u.Company.Name
}

// City returns the address city or an empty string.
func (u User) City() string {
	if u.Address == nil {
		return ""
	}
	return u.Address.City
}

// Zipcode returns the address zipcode or an empty string.
func (u User) Zipcode() string {
	if u.Address == nil {
		return ""
	}
	return u.Address.Zipcode
}

// Query carries the user-controlled directory inputs.
type Query struct {
	Search string
	City   string
	Sort   SortKey
	Page   int
}

// NormalizeQuery fills defaults for unset or unsupported query values.
func NormalizeQuery(q Query) Query {
	if q.City == "" {
		q.City = AllCities
	}
	if !q.Sort.Valid() {
		q.Sort = SortByName
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// Page is one fixed-size window over the filtered records.
type Page struct {
	Items      []User
	Number     int
	Size       int
	TotalPages int
	Clamped    bool
}

// View is the derived state rendered by the presentation layer.
type View struct {
	Cities     []string
	Query      Query
	Items      []User
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	Clamped    bool
}

// Status is the lifecycle state of the loader.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

// Snapshot is an immutable copy of the loader state.
type Snapshot struct {
	Status   Status
	Records  []User
	Message  string
	LoadID   string
	LoadedAt time.Time
}
