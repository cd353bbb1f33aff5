package app

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"mrtui/internal/remote"

	"github.com/gorilla/mux"
)

// devRouter exposes session state and a few drive-by controls for scripted
// terminal recordings.
func (a *App) devRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/__dev/state", func(w http.ResponseWriter, _ *http.Request) {
		writeDevJSON(w, http.StatusOK, a.getDevState())
	}).Methods(http.MethodGet)

	r.HandleFunc("/__dev/link", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Link string `json:"link"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeDevJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		body.Link = strings.TrimSpace(body.Link)
		if body.Link == "" {
			writeDevJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "link is required"})
			return
		}
		a.logger.Info("dev.link.request", map[string]any{"link": body.Link})
		restored := a.ParseDeepLink(body.Link)
		writeDevJSON(w, http.StatusOK, map[string]any{"ok": true, "restored": restored})
	}).Methods(http.MethodPost)

	r.HandleFunc("/__dev/action/{action}", func(w http.ResponseWriter, req *http.Request) {
		action := remote.Action(mux.Vars(req)["action"])
		switch action {
		case remote.ActionFixed, remote.ActionSkipped, remote.ActionFalsePositive, remote.ActionAlreadyFixed:
		case "next":
			action = ""
		default:
			writeDevJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "unknown action"})
			return
		}
		a.Advance(action)
		writeDevJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	}).Methods(http.MethodPost)
	return r
}

func (a *App) startDevHTTP() error {
	ln, err := net.Listen("tcp", a.cfg.DevHTTP)
	if err != nil {
		return err
	}
	a.devServer = &http.Server{Handler: a.devRouter()}
	a.setDevState(StateUnauthenticated.String(), "", "", "")
	go func() {
		if err := a.devServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("dev_http.serve_failed", map[string]any{"error": err, "addr": a.cfg.DevHTTP})
		}
	}()
	a.logger.Info("dev_http.listening", map[string]any{"addr": ln.Addr().String()})
	return nil
}

func writeDevJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
