package directoryhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/userdir/internal/directory"
	"github.com/odyssey-erp/userdir/internal/directory/export"
	"github.com/odyssey-erp/userdir/internal/platform/httpx"
	"github.com/odyssey-erp/userdir/internal/view"
)

const (
	basePath       = "/directory"
	requestTimeout = 5 * time.Second
)

// Service exposes the directory state required by the handler.
type Service interface {
	View(q directory.Query) directory.Result
	WaitView(ctx context.Context, q directory.Query) (directory.Result, error)
	Export(q directory.Query) ([]directory.User, directory.Status)
}

// Handler serves the directory page, its JSON twin and the CSV export.
type Handler struct {
	logger    *slog.Logger
	service   Service
	templates *view.Engine
	validate  *validator.Validate
}

// NewHandler membuat instance handler direktori baru.
func NewHandler(logger *slog.Logger, service Service, templates *view.Engine) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		validate:  validator.New(),
	}
}

type queryParams struct {
	Search string `validate:"max=200"`
	City   string `validate:"max=120"`
	Sort   string `validate:"omitempty,oneof=name company"`
	Page   int    `validate:"gte=0"`
}

func (h *Handler) handleDirectory(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleQueryError(w, err)
		return
	}

	res := h.service.View(q)
	vm := buildViewModel(basePath, res)
	data := view.TemplateData{
		Title:       "User Directory",
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.Render(w, "pages/directory.html", data); err != nil {
		h.handleServerError(w, "render directory", err)
	}
}

type apiUser struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	City     string `json:"city,omitempty"`
	Zipcode  string `json:"zipcode,omitempty"`
}

type apiResponse struct {
	Status     directory.Status `json:"status"`
	Query      apiQuery         `json:"query"`
	Cities     []string         `json:"cities"`
	Users      []apiUser        `json:"users"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

type apiQuery struct {
	Search string `json:"q"`
	City   string `json:"city"`
	Sort   string `json:"sort"`
}

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httpx.Problem(w, http.StatusNotImplemented, "Not Implemented", "")
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}

	var res directory.Result
	if r.URL.Query().Get("wait") == "1" {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		res, err = h.service.WaitView(ctx, q)
		if err != nil {
			res = h.service.View(q)
		}
	} else {
		res = h.service.View(q)
	}

	switch res.Status {
	case directory.StatusError:
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnavailable, directory.LoadFailedMessage))
		return
	case directory.StatusLoading:
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": string(directory.StatusLoading)})
		return
	}

	v := res.View
	users := make([]apiUser, 0, len(v.Items))
	for _, u := range v.Items {
		users = append(users, apiUser{
			ID:       u.ID,
			Name:     u.Name,
			Username: u.Username,
			Email:    u.Email,
			Company:  u.CompanyName(),
			City:     u.City(),
			Zipcode:  u.Zipcode(),
		})
	}
	httpx.JSON(w, http.StatusOK, apiResponse{
		Status:     res.Status,
		Query:      apiQuery{Search: v.Query.Search, City: v.Query.City, Sort: string(v.Query.Sort)},
		Cities:     v.Cities,
		Users:      users,
		Total:      v.Total,
		Page:       v.Page,
		PageSize:   v.PageSize,
		TotalPages: v.TotalPages,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleQueryError(w, err)
		return
	}
	users, status := h.service.Export(q)
	if status != directory.StatusReady {
		w.Header().Set("Retry-After", "30")
		http.Error(w, directory.LoadFailedMessage, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)
	if err := export.WriteUsersCSV(w, users); err != nil {
		h.logger.Error("export directory", slog.Any("error", err))
	}
}

func (h *Handler) parseQuery(r *http.Request) (directory.Query, error) {
	values := r.URL.Query()
	params := queryParams{
		Search: values.Get("q"),
		City:   strings.TrimSpace(values.Get("city")),
		Sort:   strings.TrimSpace(values.Get("sort")),
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return directory.Query{}, validationError{field: "page"}
		}
		params.Page = page
	}
	if err := h.validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return directory.Query{}, validationError{field: strings.ToLower(fieldErrs[0].Field())}
		}
		return directory.Query{}, err
	}
	return directory.NormalizeQuery(directory.Query{
		Search: params.Search,
		City:   params.City,
		Sort:   directory.SortKey(params.Sort),
		Page:   params.Page,
	}), nil
}

func (h *Handler) handleQueryError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "validate query", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type validationError struct {
	field string
}

func (e validationError) Error() string {
	return "invalid " + e.field
}
