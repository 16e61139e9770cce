package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
	"github.com/gorilla/mux"
)

// AdminHandler exposes the force-transition entry point. Access is
// validated server-side with a bearer token; no client-held flag can
// reach it.
type AdminHandler struct {
	service *game.Service
	token   string
}

func NewAdminHandler(service *game.Service, token string) *AdminHandler {
	return &AdminHandler{service: service, token: token}
}

type forceAdvanceRequest struct {
	Target domain.Status `json:"target,omitempty"`
}

// ForceAdvance handles POST /admin/games/{gameID}/advance. An empty
// target advances one step; an explicit target sets the phase directly,
// subject to the finish guard.
func (h *AdminHandler) ForceAdvance(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	gameID := mux.Vars(r)["gameID"]

	var req forceAdvanceRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	state, err := h.service.ForceAdvance(r.Context(), gameID, req.Target)
	if err != nil {
		writeForceAdvanceError(w, gameID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.token)) == 1
}

func writeForceAdvanceError(w http.ResponseWriter, gameID string, err error) {
	var premature *game.PrematureFinishError
	switch {
	case errors.As(err, &premature):
		http.Error(w, premature.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrStateNotFound), errors.Is(err, domain.ErrGameNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrGameFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("force advance game %s: %v", gameID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
