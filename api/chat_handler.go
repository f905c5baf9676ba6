package api

import (
	"huddle/auth"
	"huddle/domain"
	"huddle/errors"
	"huddle/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatHandler struct {
	log     *slog.Logger
	service services.IChatService
	online  OnlineLister
}

func NewChatHandler(log *slog.Logger, service services.IChatService, online OnlineLister) *ChatHandler {
	return &ChatHandler{log: log, service: service, online: online}
}

func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/groups/default", h.handleDefaultGroup)
	r.Get("/groups/{groupId}/messages", h.handleMessages)
	r.Get("/groups/{groupId}/members", h.handleMembers)
	r.Delete("/messages/{messageId}", h.handleDeleteMessage)
	r.Get("/online", h.handleOnline)
}

type groupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsAnonymous bool      `json:"isAnonymous"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *ChatHandler) handleDefaultGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.DefaultGroup(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"group": groupResponse{
		ID:          group.ID.String(),
		Name:        group.Name,
		Description: group.Description,
		IsAnonymous: group.IsAnonymous,
		CreatedAt:   group.CreatedAt,
	}})
}

func (h *ChatHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(chi.URLParam(r, "groupId"))
	messages, err := h.service.RecentMessages(r.Context(), groupID)
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"messages": messages})
}

type memberResponse struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (h *ChatHandler) handleMembers(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(chi.URLParam(r, "groupId"))
	members, err := h.service.Members(r.Context(), groupID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"members": lo.Map(members, func(m domain.Member, _ int) memberResponse {
		return memberResponse{
			ID:       m.ID,
			Username: m.Username,
			Avatar:   m.Avatar,
			IsOnline: m.IsOnline,
			JoinedAt: m.JoinedAt,
		}
	})})
}

func (h *ChatHandler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
	if err != nil {
		respondFailure(h.log, w, r, errors.ErrMessageNotFound)
		return
	}
	if err := h.service.DeleteMessage(r.Context(), messageID, auth.UserIDFromContext(r.Context())); err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"message": "Message deleted successfully"})
}

func (h *ChatHandler) handleOnline(w http.ResponseWriter, r *http.Request) {
	if h.online == nil {
		respondError(w, http.StatusServiceUnavailable, "presence cache not configured")
		return
	}
	users, err := h.online.OnlineUsers(r.Context())
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"users": users})
}
