package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/mvigliero/celushop/internal/domain"
	"github.com/mvigliero/celushop/internal/usecase"
)

type Server struct {
	router    chi.Router
	products  *usecase.ProductUC
	orders    *usecase.OrderUC
	carts     *usecase.CartUC
	discounts *usecase.DiscountUC
	customers domain.CustomerRepo
	oauthCfg  *oauth2.Config

	adminAllowed map[string]struct{}
	adminSecret  []byte
}

func New(p *usecase.ProductUC, o *usecase.OrderUC, c *usecase.CartUC, d *usecase.DiscountUC, customers domain.CustomerRepo, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{
		products:     p,
		orders:       o,
		carts:        c,
		discounts:    d,
		customers:    customers,
		oauthCfg:     oauthCfg,
		adminAllowed: map[string]struct{}{},
		adminSecret:  secretKey(),
	}
	for _, e := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			s.adminAllowed[e] = struct{}{}
		}
	}
	s.routes()
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })

	r.Get("/auth/google/login", s.handleGoogleLogin)
	r.Get("/auth/google/callback", s.handleGoogleCallback)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/admin/login", s.handleAdminLogin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.handleListProducts)
		r.Get("/products/{slug}", s.handleGetProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/cart", s.handleCartView)
			r.Post("/cart", s.handleCartAdd)
			r.Put("/cart/items/{itemID}", s.handleCartSetQty)
			r.Delete("/cart", s.handleCartClear)

			r.Post("/orders", s.handlePlaceOrder)
			r.Post("/orders/from-cart", s.handlePlaceOrderFromCart)
			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/number/{number}", s.handleGetOrderByNumber)
			r.Get("/orders/{orderID}", s.handleGetOrder)
			r.Post("/orders/{orderID}/cancel", s.handleCancelOrder)

			r.Post("/discounts/preview", s.handleDiscountPreview)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/products", s.handleAdminCreateProduct)
			r.Put("/products/{productID}", s.handleAdminUpdateProduct)
			r.Patch("/orders/{orderID}/status", s.handleAdminOrderStatus)
			r.Post("/discounts", s.handleAdminCreateDiscount)
			r.Get("/discounts", s.handleAdminListDiscounts)
			r.Delete("/discounts/{discountID}", s.handleAdminDeactivateDiscount)
			r.Get("/inventory/export", s.handleInventoryExport)
		})
	})

	s.router = r
}

// --- products ---

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Sort:     q.Get("sort"),
		Page:     atoiDefault(q.Get("page"), 1),
		PageSize: atoiDefault(q.Get("page_size"), 20),
	}
	list, total, err := s.products.List(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"products": list, "total": total})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, p)
}

func (s *Server) handleAdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in usecase.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	p, err := s.products.Create(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, p)
}

func (s *Server) handleAdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		badRequest(w, "invalid product id")
		return
	}
	var in usecase.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	p, err := s.products.Update(r.Context(), id, in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, p)
}

// --- cart ---

func (s *Server) handleCartView(w http.ResponseWriter, r *http.Request) {
	lines, total, err := s.carts.View(r.Context(), userID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"lines": lines, "total": total})
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var line usecase.OrderLineInput
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := s.carts.AddItem(r.Context(), userID(r), line); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

func (s *Server) handleCartSetQty(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		badRequest(w, "invalid item id")
		return
	}
	var body struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := s.carts.SetQty(r.Context(), userID(r), itemID, body.Qty); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if err := s.carts.Clear(r.Context(), userID(r)); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

// --- orders ---

type placeOrderRequest struct {
	Items           []usecase.OrderLineInput `json:"items"`
	ShippingAddress domain.ShippingAddress   `json:"shippingAddress"`
	DiscountCode    string                   `json:"discountCode"`
	SaveAddress     bool                     `json:"saveAddress"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	o, err := s.orders.PlaceOrder(r.Context(), userID(r), req.Items, req.ShippingAddress, usecase.PlaceOrderOptions{
		DiscountCode: req.DiscountCode,
		SaveAddress:  req.SaveAddress,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, o)
}

func (s *Server) handlePlaceOrderFromCart(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	o, err := s.orders.PlaceOrderFromCart(r.Context(), userID(r), req.ShippingAddress, usecase.PlaceOrderOptions{
		DiscountCode: req.DiscountCode,
		SaveAddress:  req.SaveAddress,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, o)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListByUser(r.Context(), userID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"orders": list})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}
	o, err := s.orders.Get(r.Context(), userID(r), orderID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, o)
}

func (s *Server) handleGetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.GetByNumber(r.Context(), userID(r), chi.URLParam(r, "number"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}
	o, err := s.orders.CancelOrder(r.Context(), userID(r), orderID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, o)
}

func (s *Server) handleAdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		badRequest(w, "invalid order id")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	o, err := s.orders.UpdateOrderStatus(r.Context(), orderID, domain.OrderStatus(body.Status))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, o)
}

// --- discounts ---

func (s *Server) handleAdminCreateDiscount(w http.ResponseWriter, r *http.Request) {
	var in usecase.DiscountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	d, err := s.discounts.Create(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 201, d)
}

func (s *Server) handleAdminListDiscounts(w http.ResponseWriter, r *http.Request) {
	list, err := s.discounts.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"discounts": list})
}

func (s *Server) handleAdminDeactivateDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "discountID"))
	if err != nil {
		badRequest(w, "invalid discount id")
		return
	}
	if err := s.discounts.Deactivate(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

// handleDiscountPreview evaluates a code against the caller's current cart
// without consuming a use. The checkout re-evaluates; the cart can drift in
// the meantime.
func (s *Server) handleDiscountPreview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	lines, total, err := s.carts.View(r.Context(), userID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	productIDs := make([]uuid.UUID, 0, len(lines))
	categories := make([]string, 0, len(lines))
	for _, ln := range lines {
		productIDs = append(productIDs, ln.ProductID)
		if p, perr := s.products.Get(r.Context(), ln.ProductID); perr == nil && p.Category != "" {
			categories = append(categories, p.Category)
		}
	}
	amount, err := s.discounts.Preview(r.Context(), body.Code, total, productIDs, categories)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"discount": amount, "total": total - amount})
}

// --- helpers ---

// fail maps domain errors onto HTTP responses. Validation and stock errors
// carry their message; anything unexpected collapses to a generic 500 with
// the detail logged server-side only.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var serr *domain.InsufficientStockError
	var terr *domain.InvalidTransitionError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, 422, map[string]any{"error": verr.Error()})
	case errors.As(err, &serr):
		writeJSON(w, 409, map[string]any{"error": serr.Error()})
	case errors.As(err, &terr):
		writeJSON(w, 409, map[string]any{"error": terr.Error()})
	case errors.Is(err, domain.ErrDiscountInvalid):
		writeJSON(w, 422, map[string]any{"error": domain.ErrDiscountInvalid.Error()})
	case errors.Is(err, domain.ErrEmptyOrder):
		writeJSON(w, 422, map[string]any{"error": domain.ErrEmptyOrder.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, 404, map[string]any{"error": "not found"})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, 500, map[string]any{"error": "failed to process request"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, 400, map[string]any{"error": msg})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
