package catalog

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MiniShop/internal/auth"
	"MiniShop/pkg/kit"
)

type Server struct {
	Catalog  *Catalog
	Log      *zap.Logger
	Validate *validator.Validate
	JWT      *auth.TokenMaker
	Cache    kit.ResponseCache
}

// Routes is mounted under /api/products. Reads are public and cached by URL;
// writes need an admin token.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		if s.Cache != nil {
			pr.Use(kit.CacheResponses(s.Cache, s.Log))
		}
		pr.Get("/", s.list)
		pr.Get("/{id}", s.get)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.AuthJWT(s.JWT))
		pr.Use(auth.RequireRole(auth.RoleAdmin))
		pr.Post("/", s.create)
		pr.Put("/{id}", s.update)
		pr.Delete("/{id}", s.delete)
	})

	return r
}

type listQuery struct {
	Page      *int   `query:"page" validate:"omitempty,min=1,max=10000"`
	Limit     *int   `query:"limit" validate:"omitempty,min=1,max=100"`
	Search    string `query:"search" validate:"omitempty,max=200,safe"`
	Category  string `query:"category" validate:"omitempty,max=50,safe"`
	Brand     string `query:"brand" validate:"omitempty,max=100,safe"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=name price rating createdAt stock"`
	SortOrder string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Admin     string `query:"admin" validate:"isdefault"`
	Internal  string `query:"internal" validate:"isdefault"`
}

type pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type listResp struct {
	Products   []View     `json:"products"`
	Pagination pagination `json:"pagination"`
}

func parseListQuery(q url.Values) (listQuery, []kit.FieldError) {
	lq := listQuery{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		Brand:     q.Get("brand"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Admin:     q.Get("admin"),
		Internal:  q.Get("internal"),
	}

	var bad []kit.FieldError
	for name, dst := range map[string]**int{"page": &lq.Page, "limit": &lq.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			bad = append(bad, kit.FieldError{Field: name, Message: "must be an integer"})
			continue
		}
		*dst = &n
	}
	return lq, bad
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	lq, bad := parseListQuery(r.URL.Query())
	if len(bad) > 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", bad)
		return
	}
	if err := s.Validate.Struct(lq); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", kit.FieldErrors(err))
		return
	}

	p := Params{
		Term:      kit.Sanitize(lq.Search),
		Category:  kit.Sanitize(lq.Category),
		Brand:     kit.Sanitize(lq.Brand),
		SortBy:    SortField(lq.SortBy),
		SortOrder: SortOrder(lq.SortOrder),
	}
	if lq.Page != nil {
		p.Page = *lq.Page
	}
	if lq.Limit != nil {
		p.Limit = *lq.Limit
	}

	page, err := s.Catalog.Query(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(page.TotalItems))
	kit.WriteJSON(w, http.StatusOK, listResp{
		Products: page.Items,
		Pagination: pagination{
			CurrentPage:  page.Page,
			TotalPages:   page.TotalPages,
			TotalItems:   page.TotalItems,
			ItemsPerPage: page.Limit,
		},
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("internal") != "" {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input",
			[]kit.FieldError{{Field: "internal", Message: "unauthorized parameter"}})
		return
	}

	p, err := s.Catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p.View())
}

type createReq struct {
	Name          string           `json:"name" validate:"required,max=200,safe"`
	Description   string           `json:"description" validate:"required,max=1000,safe"`
	Price         decimal.Decimal  `json:"price" validate:"gte=0.01,lte=1000000"`
	Category      string           `json:"category" validate:"required,max=50,safe"`
	Brand         string           `json:"brand" validate:"omitempty,max=100,safe"`
	Stock         *int             `json:"stock" validate:"omitempty,min=0"`
	Tags          []string         `json:"tags" validate:"omitempty,max=10,dive,max=50,safe"`
	CostPrice     *decimal.Decimal `json:"costPrice" validate:"omitempty,gte=0"`
	Supplier      *string          `json:"supplier" validate:"omitempty,max=100,safe"`
	InternalNotes *string          `json:"internalNotes" validate:"omitempty,max=500,safe"`
	AdminOnly     *bool            `json:"adminOnly"`
}

type updateReq struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200,safe"`
	Description   *string          `json:"description" validate:"omitempty,min=1,max=1000,safe"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gte=0.01,lte=1000000"`
	Category      *string          `json:"category" validate:"omitempty,min=1,max=50,safe"`
	Brand         *string          `json:"brand" validate:"omitempty,max=100,safe"`
	Stock         *int             `json:"stock" validate:"omitempty,min=0"`
	Tags          *[]string        `json:"tags" validate:"omitempty,max=10,dive,max=50,safe"`
	CostPrice     *decimal.Decimal `json:"costPrice" validate:"omitempty,gte=0"`
	Supplier      *string          `json:"supplier" validate:"omitempty,max=100,safe"`
	InternalNotes *string          `json:"internalNotes" validate:"omitempty,max=500,safe"`
	AdminOnly     *bool            `json:"adminOnly"`

	ID        *string `json:"id"`
	CreatedAt *string `json:"createdAt"`
}

type productResp struct {
	Message string `json:"message"`
	Product View   `json:"product"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := kit.DecodeJSON(w, r, &req, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", kit.FieldErrors(err))
		return
	}

	p, err := s.Catalog.Create(principal(r), NewProduct{
		Name:          kit.Sanitize(req.Name),
		Description:   kit.Sanitize(req.Description),
		Price:         req.Price,
		Category:      kit.Sanitize(req.Category),
		Brand:         kit.Sanitize(req.Brand),
		Stock:         req.Stock,
		Tags:          sanitizeAll(req.Tags),
		CostPrice:     req.CostPrice,
		Supplier:      sanitizePtr(req.Supplier),
		InternalNotes: sanitizePtr(req.InternalNotes),
		AdminOnly:     req.AdminOnly,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, productResp{Message: "Product created successfully", Product: p.View()})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := kit.DecodeJSON(w, r, &req, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	var immutable []kit.FieldError
	if req.ID != nil {
		immutable = append(immutable, kit.FieldError{Field: "id", Message: "cannot update product ID"})
	}
	if req.CreatedAt != nil {
		immutable = append(immutable, kit.FieldError{Field: "createdAt", Message: "cannot update creation date"})
	}
	if len(immutable) > 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", immutable)
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", kit.FieldErrors(err))
		return
	}

	patch := Patch{
		Name:          sanitizePtr(req.Name),
		Description:   sanitizePtr(req.Description),
		Price:         req.Price,
		Category:      sanitizePtr(req.Category),
		Brand:         sanitizePtr(req.Brand),
		Stock:         req.Stock,
		CostPrice:     req.CostPrice,
		Supplier:      sanitizePtr(req.Supplier),
		InternalNotes: sanitizePtr(req.InternalNotes),
		AdminOnly:     req.AdminOnly,
	}
	if req.Tags != nil {
		tags := sanitizeAll(*req.Tags)
		patch.Tags = &tags
	}

	p, err := s.Catalog.Update(principal(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, productResp{Message: "Product updated successfully", Product: p.View()})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.Delete(principal(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "product not found", nil)
	case errors.Is(err, ErrValidation):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", []kit.FieldError{{Message: err.Error()}})
	case errors.Is(err, ErrPageOutOfRange):
		kit.WriteError(w, r, http.StatusBadRequest, "page number exceeds available pages", nil)
	case errors.Is(err, ErrForbidden):
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
	default:
		s.Log.Error("catalog request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "internal server error", nil)
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := kit.Sanitize(*s)
	return &v
}

func sanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = kit.Sanitize(s)
	}
	return out
}
