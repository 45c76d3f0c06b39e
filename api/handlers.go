// Package api exposes the HTTP surface: click submission, chat edits, item
// and click fetches, favorites and re-search.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/seeclickbuy/backend/clicks"
	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
)

const defaultListLimit = 50

// Handler routes HTTP requests to the clicks service.
type Handler struct {
	svc *clicks.Service
	log *logger.Logger
}

func NewHandler(svc *clicks.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("service", "API")}
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Welcome)
	mux.HandleFunc("POST /click", h.SubmitClick)
	mux.HandleFunc("POST /chat", h.SubmitChat)
	mux.HandleFunc("GET /click/{id}", h.GetClick)
	mux.HandleFunc("GET /click/{id}/items", h.ClickItems)
	mux.HandleFunc("GET /click/{id}/items/favorites", h.ClickFavorites)
	mux.HandleFunc("POST /click/{id}/search", h.ReSearch)
	mux.HandleFunc("GET /click/{id}/chats", h.ClickChats)
	mux.HandleFunc("GET /item/{id}", h.GetItem)
	mux.HandleFunc("POST /item/{id}/favorite", h.Favorite)
	mux.HandleFunc("POST /item/{id}/unfavorite", h.Unfavorite)
	mux.HandleFunc("GET /user/{id}/clicks", h.UserClicks)
}

func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the SeeClickBuy API"})
}

func (h *Handler) SubmitClick(w http.ResponseWriter, r *http.Request) {
	var req clicks.SubmitClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	click, err := h.svc.SubmitClick(r.Context(), req)
	if err != nil {
		h.log.Error("submit click failed", "error", err)
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusCreated, click)
}

type chatRequest struct {
	ClickID string `json:"click_id"`
	Text    string `json:"text"`
}

type chatResponse struct {
	Click *models.Click `json:"click"`
	Chat  *models.Chat  `json:"chat"`
}

func (h *Handler) SubmitChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ClickID == "" || req.Text == "" {
		RespondError(w, "click_id and text are required", http.StatusBadRequest)
		return
	}
	click, chat, err := h.svc.SubmitChat(r.Context(), req.ClickID, req.Text)
	if err != nil {
		h.log.Error("submit chat failed", "click_id", req.ClickID, "error", err)
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, chatResponse{Click: click, Chat: chat})
}

func (h *Handler) GetClick(w http.ResponseWriter, r *http.Request) {
	click, err := h.svc.GetClick(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, click)
}

func (h *Handler) ClickItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ItemsForClick(r.Context(), r.PathValue("id"), limitParam(r))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, emptyIfNil(items))
}

func (h *Handler) ClickFavorites(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.FavoriteItemsForClick(r.Context(), r.PathValue("id"), limitParam(r))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, emptyIfNil(items))
}

func (h *Handler) ReSearch(w http.ResponseWriter, r *http.Request) {
	clickID := r.PathValue("id")
	items, err := h.svc.ReSearch(r.Context(), clickID)
	if err != nil {
		h.log.Error("re-search failed", "click_id", clickID, "error", err)
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, emptyIfNil(items))
}

func (h *Handler) ClickChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ChatsForClick(r.Context(), r.PathValue("id"), limitParam(r))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	RespondJSON(w, http.StatusOK, chats)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, item)
}

func (h *Handler) Favorite(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Favorite(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, item)
}

func (h *Handler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Unfavorite(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	RespondJSON(w, http.StatusOK, item)
}

func (h *Handler) UserClicks(w http.ResponseWriter, r *http.Request) {
	userClicks, err := h.svc.RecentClicksByUser(r.Context(), r.PathValue("id"), limitParam(r))
	if err != nil {
		RespondError(w, err.Error(), statusFor(err))
		return
	}
	if userClicks == nil {
		userClicks = []models.Click{}
	}
	RespondJSON(w, http.StatusOK, userClicks)
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func emptyIfNil(items []models.Item) []models.Item {
	if items == nil {
		return []models.Item{}
	}
	return items
}
