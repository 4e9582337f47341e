package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"MiniShop/internal/auth"
	"MiniShop/pkg/kit"
)

type Server struct {
	Service  *Service
	Log      *zap.Logger
	Validate *validator.Validate
	JWT      *auth.TokenMaker
}

// Routes is mounted under /api/cart. Every route needs a valid token.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.AuthJWT(s.JWT))

	r.Get("/", s.get)
	r.Post("/", s.add)
	r.Put("/", s.set)
	r.Delete("/", s.remove)

	return r
}

// ProductRef accepts a product id sent either as a JSON string or as a
// positive integer.
type ProductRef string

var errNumericProductRef = errors.New("numeric productId must be a positive integer")

func (p *ProductRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = ProductRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil || id == 0 {
		return errNumericProductRef
	}
	*p = ProductRef(strconv.FormatUint(id, 10))
	return nil
}

type addReq struct {
	ProductID ProductRef `json:"productId" validate:"required,productid"`
	Quantity  *int       `json:"quantity" validate:"omitempty,min=1,max=100"`
}

type setReq struct {
	ProductID ProductRef `json:"productId" validate:"required,productid"`
	Quantity  *int       `json:"quantity" validate:"required,min=0,max=100"`
}

type cartResp struct {
	Message     string    `json:"message,omitempty"`
	Cart        Snapshot  `json:"cart"`
	Metadata    *metadata `json:"metadata,omitempty"`
	AddedItem   *lineRef  `json:"addedItem,omitempty"`
	RemovedItem *Item     `json:"removedItem,omitempty"`
}

type metadata struct {
	LastUpdated time.Time `json:"lastUpdated"`
	ItemCount   int       `json:"itemCount"`
}

type lineRef struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Get(userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("X-Cart-Items", strconv.Itoa(snap.ItemCount))
	kit.WriteJSON(w, http.StatusOK, cartResp{
		Cart:     snap,
		Metadata: &metadata{LastUpdated: time.Now().UTC(), ItemCount: snap.ItemCount},
	})
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if !s.decode(w, r, &req) {
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	snap, _, err := s.Service.AddItem(userID(r), string(req.ProductID), qty)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, cartResp{
		Message:   "Item added to cart",
		Cart:      snap,
		AddedItem: &lineRef{ProductID: string(req.ProductID), Quantity: qty},
	})
}

func (s *Server) set(w http.ResponseWriter, r *http.Request) {
	var req setReq
	if !s.decode(w, r, &req) {
		return
	}

	snap, err := s.Service.SetItem(userID(r), string(req.ProductID), *req.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, cartResp{Message: "Cart item updated", Cart: snap})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	pid := r.URL.Query().Get("productId")
	if !kit.IsValidProductID(pid) {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input",
			[]kit.FieldError{{Field: "productId", Message: "invalid product ID format"}})
		return
	}

	snap, removed, err := s.Service.RemoveItem(userID(r), pid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, cartResp{Message: "Item removed from cart", Cart: snap, RemovedItem: &removed})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := kit.DecodeJSON(w, r, dst, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	if err := s.Validate.Struct(dst); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", kit.FieldErrors(err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "item not found in cart", nil)
	case errors.Is(err, ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusNotFound, "product not found", nil)
	case errors.Is(err, ErrMaxQuantityExceeded):
		kit.WriteError(w, r, http.StatusBadRequest, "maximum quantity limit (100) exceeded", nil)
	case errors.Is(err, ErrValidation):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid input", []kit.FieldError{{Message: err.Error()}})
	default:
		s.Log.Error("cart request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "internal server error", nil)
	}
}

func userID(r *http.Request) string {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p.ID
}
