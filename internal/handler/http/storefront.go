package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/GameStoreGo/internal/collection"
	"github.com/utafrali/GameStoreGo/internal/domain"
	"github.com/utafrali/GameStoreGo/internal/service"
	"github.com/utafrali/GameStoreGo/pkg/httputil"
	"github.com/utafrali/GameStoreGo/pkg/validator"
)

// StorefrontHandler exposes the mirrors and the session to the UI shell.
type StorefrontHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.StorefrontService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / response DTOs ---

// SignInRequest is the JSON body of POST /api/v1/session.
type SignInRequest struct {
	Token string `json:"token" validate:"required"`
}

// CollectionView is the read model of one mirror.
type CollectionView struct {
	Kind       domain.Kind   `json:"kind"`
	State      domain.State  `json:"state"`
	Count      int           `json:"count"`
	Items      []domain.Item `json:"items"`
	Total      *float64      `json:"total,omitempty"`
	TotalCents *int64        `json:"total_cents,omitempty"`
}

// AchievementsView is the read model of the achievements mirror.
type AchievementsView struct {
	State domain.State         `json:"state"`
	Count int                  `json:"count"`
	Items []domain.Achievement `json:"items"`
}

type achievementCheckView struct {
	Unlocked     []domain.Achievement `json:"unlocked"`
	Achievements AchievementsView     `json:"achievements"`
}

type achievementView struct {
	Type     string `json:"type"`
	Unlocked bool   `json:"unlocked"`
}

func achievementsViewOf(a *collection.Achievements) AchievementsView {
	v := AchievementsView{State: a.State(), Items: a.Items()}
	if v.Items == nil {
		v.Items = []domain.Achievement{}
	}
	v.Count = len(v.Items)
	return v
}

type membershipView struct {
	GameID int64 `json:"game_id"`
	Member bool  `json:"member"`
}

func viewOf(c *collection.Cache) CollectionView {
	v := CollectionView{
		Kind:  c.Kind(),
		State: c.State(),
		Items: c.Items(),
	}
	v.Count = len(v.Items)
	if c.Kind() == domain.KindCart {
		total, cents := c.Total(), c.TotalCents()
		v.Total, v.TotalCents = &total, &cents
	}
	return v
}

// --- Collection handlers ---

func (h *StorefrontHandler) collection(w http.ResponseWriter, r *http.Request) (*collection.Cache, bool) {
	c, err := h.service.Collection(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, false
	}
	return c, true
}

// GetCollection handles GET /api/v1/{kind}
func (h *StorefrontHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, viewOf(c))
}

// AddItem handles POST /api/v1/{kind}/items
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}

	var game domain.Game
	if err := validator.DecodeAndValidate(r, &game); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := c.Add(r.Context(), &game); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, viewOf(c))
}

// GetMembership handles GET /api/v1/{kind}/items/{gameId}
func (h *StorefrontHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseGameID(w, chi.URLParam(r, "gameId"))
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, membershipView{GameID: id, Member: c.IsMember(id)})
}

// RemoveItem handles DELETE /api/v1/{kind}/items/{gameId}
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseGameID(w, chi.URLParam(r, "gameId"))
	if !ok {
		return
	}

	if err := c.Remove(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, viewOf(c))
}

// ClearCollection handles DELETE /api/v1/{kind}
func (h *StorefrontHandler) ClearCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	if err := c.Clear(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, viewOf(c))
}

// RefreshCollection handles POST /api/v1/{kind}/refresh
func (h *StorefrontHandler) RefreshCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	if err := c.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, viewOf(c))
}

// --- Achievements ---

// GetAchievements handles GET /api/v1/achievements
func (h *StorefrontHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, achievementsViewOf(h.service.Achievements()))
}

// GetAchievement handles GET /api/v1/achievements/{type}
func (h *StorefrontHandler) GetAchievement(w http.ResponseWriter, r *http.Request) {
	t := chi.URLParam(r, "type")
	httputil.WriteData(w, http.StatusOK, achievementView{Type: t, Unlocked: h.service.Achievements().Has(t)})
}

// RefreshAchievements handles POST /api/v1/achievements/refresh
func (h *StorefrontHandler) RefreshAchievements(w http.ResponseWriter, r *http.Request) {
	a := h.service.Achievements()
	if err := a.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, achievementsViewOf(a))
}

// CheckAchievements handles POST /api/v1/achievements/check
func (h *StorefrontHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := h.service.CheckAchievements(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, achievementCheckView{
		Unlocked:     unlocked,
		Achievements: achievementsViewOf(h.service.Achievements()),
	})
}

// --- Session handlers ---

// GetSession handles GET /api/v1/session
func (h *StorefrontHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.Session())
}

// SignIn handles POST /api/v1/session
func (h *StorefrontHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if _, err := h.service.SignIn(r.Context(), req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.Session())
}

// SignOut handles DELETE /api/v1/session
func (h *StorefrontHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Orders ---

// Checkout handles POST /api/v1/checkout
func (h *StorefrontHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Checkout(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders
func (h *StorefrontHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.Orders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, orders)
}

// GetAffordances handles GET /api/v1/games/{gameId}/affordances
func (h *StorefrontHandler) GetAffordances(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseGameID(w, chi.URLParam(r, "gameId"))
	if !ok {
		return
	}
	a, err := h.service.Affordances(id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, a)
}
