package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the public websocket endpoint and the admin surface.
func NewRouter(ws *WSHandler, admin *AdminHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)
	r.HandleFunc("/admin/games/{gameID}/advance", admin.ForceAdvance).Methods(http.MethodPost)
	return r
}
