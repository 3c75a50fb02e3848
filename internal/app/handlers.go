package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"unidelas/safety-agent/internal/dispatcher"
	"unidelas/safety-agent/internal/gateway"
	"unidelas/safety-agent/internal/identity"
	"unidelas/safety-agent/internal/mapview"
	"unidelas/safety-agent/internal/model"
)

func (a *App) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReadyz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/session", a.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/register", a.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/session/login", a.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/session/logout", a.handleLogout).Methods(http.MethodPost)

	api.HandleFunc("/panic", a.handlePanicStatus).Methods(http.MethodGet)
	api.HandleFunc("/panic/activate", a.handleActivate).Methods(http.MethodPost)
	api.HandleFunc("/panic/confirm", a.handleConfirm).Methods(http.MethodPost)
	api.HandleFunc("/panic/cancel", a.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/panic/deactivate", a.handleDeactivate).Methods(http.MethodPost)

	api.HandleFunc("/emergencies", a.handleEmergencies).Methods(http.MethodGet)
	api.HandleFunc("/emergencies", a.handleClearEmergencies).Methods(http.MethodDelete)
	api.HandleFunc("/alerts/received", a.handleReceivedAlerts).Methods(http.MethodGet)
	api.HandleFunc("/map", a.handleMap).Methods(http.MethodGet)

	api.HandleFunc("/support/contacts", a.handleTrustedContacts).Methods(http.MethodGet)
	api.HandleFunc("/support/pending", a.handlePendingRequests).Methods(http.MethodGet)
	api.HandleFunc("/support/requests", a.handleSendSupportRequest).Methods(http.MethodPost)
	api.HandleFunc("/support/requests/{id}/accept", a.handleAcceptSupportRequest).Methods(http.MethodPut)
	api.HandleFunc("/support/requests/{id}", a.handleRejectSupportRequest).Methods(http.MethodDelete)

	api.HandleFunc("/posts", a.handlePosts).Methods(http.MethodGet)
	api.HandleFunc("/posts", a.handleCreatePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/comments", a.handleComments).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/comments", a.handleCreateComment).Methods(http.MethodPost)

	api.HandleFunc("/groups", a.handleGroups).Methods(http.MethodGet)
	api.HandleFunc("/groups", a.handleCreateGroup).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeBackendError keeps the backend's status for non-2xx answers and maps
// transport failures to 502.
func writeBackendError(w http.ResponseWriter, err error) {
	var backendErr *gateway.BackendError
	if errors.As(err, &backendErr) {
		writeError(w, backendErr.Status, "backend rejected the request")
		return
	}
	writeError(w, http.StatusBadGateway, "backend unreachable")
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.store == nil || a.backend == nil || a.alerts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *App) handleSession(w http.ResponseWriter, r *http.Request) {
	current, err := a.store.Current(r.Context())
	if errors.Is(err, identity.ErrNotAuthenticated) {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err != nil {
		a.logger.Error("load identity", "error", err)
		writeError(w, http.StatusInternalServerError, "identity store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg gateway.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		writeError(w, http.StatusBadRequest, "nome, email and senha required")
		return
	}

	if err := a.backend.Register(r.Context(), reg); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	creds := gateway.Credentials{
		Email:    req.Email,
		Password: req.Password,
		// The push channel this agent listens on; stored by the backend so
		// notification fan-out can address it.
		PushToken: "mqtt:push",
	}

	user, err := a.backend.Login(r.Context(), creds)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	if err := a.store.Save(r.Context(), user); err != nil {
		a.logger.Error("persist identity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist identity")
		return
	}

	if err := a.startListener(r.Context(), user.ID); err != nil {
		// Login still succeeds; alerts keep flowing through the received list.
		a.logger.Warn("push subscription unavailable", "error", err)
	}

	writeJSON(w, http.StatusOK, user)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Clear(r.Context()); err != nil {
		a.logger.Error("clear identity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear identity")
		return
	}
	a.stopListener()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handlePanicStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		State dispatcher.State     `json:"state"`
		Links []model.WhatsAppLink `json:"whatsappLinks"`
	}{State: a.alerts.State(), Links: a.alerts.Links()}

	if coords, ok := a.alerts.Position(); ok {
		writeJSON(w, http.StatusOK, struct {
			State    dispatcher.State     `json:"state"`
			Links    []model.WhatsAppLink `json:"whatsappLinks"`
			Position model.Coordinates    `json:"position"`
		}{resp.State, resp.Links, coords})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleActivate(w http.ResponseWriter, r *http.Request) {
	if !a.alerts.Activate() {
		writeError(w, http.StatusConflict, "activation already in progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   a.alerts.State(),
		"message": "Isso enviará sua localização para seus contatos de confiança. Confirme para continuar.",
	})
}

func (a *App) handleConfirm(w http.ResponseWriter, r *http.Request) {
	current, err := a.store.Current(r.Context())
	if errors.Is(err, identity.ErrNotAuthenticated) {
		// No actor id means no alert can be attributed; abandon the
		// pending confirmation instead of failing mid-submission.
		a.alerts.Cancel()
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err != nil {
		a.logger.Error("load identity", "error", err)
		writeError(w, http.StatusInternalServerError, "identity store unavailable")
		return
	}

	links, err := a.alerts.Confirm(r.Context(), current.Email)
	switch {
	case errors.Is(err, dispatcher.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "no activation awaiting confirmation")
		return
	case errors.Is(err, dispatcher.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "location permission denied, alert not sent")
		return
	case err != nil:
		writeBackendError(w, err)
		return
	}

	position, _ := a.alerts.Position()
	writeJSON(w, http.StatusOK, struct {
		State    dispatcher.State     `json:"state"`
		Links    []model.WhatsAppLink `json:"whatsappLinks"`
		Position model.Coordinates    `json:"position"`
	}{a.alerts.State(), links, position})
}

func (a *App) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !a.alerts.Cancel() {
		writeError(w, http.StatusConflict, "no activation awaiting confirmation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": a.alerts.State()})
}

func (a *App) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if !a.alerts.Deactivate() {
		writeError(w, http.StatusConflict, "no active alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   a.alerts.State(),
		"message": "Você marcou que está segura.",
	})
}

func (a *App) handleEmergencies(w http.ResponseWriter, r *http.Request) {
	events := a.events.Events()
	writeJSON(w, http.StatusOK, struct {
		Count  int                    `json:"count"`
		Events []model.EmergencyEvent `json:"events"`
	}{len(events), events})
}

func (a *App) handleClearEmergencies(w http.ResponseWriter, r *http.Request) {
	a.events.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleReceivedAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.backend.ReceivedAlerts(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleMap serves the map-detail view: the region of the most recent
// notification response, or an explicit coordinate passed by the caller
// (e.g. from the received-alerts list).
func (a *App) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("latitude") != "" || q.Get("longitude") != "" {
		lat, latErr := strconv.ParseFloat(q.Get("latitude"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("longitude"), 64)
		if latErr != nil || lngErr != nil {
			writeError(w, http.StatusBadRequest, "latitude and longitude must be numeric")
			return
		}

		region, err := mapview.NewRegion(model.Coordinates{Latitude: lat, Longitude: lng}, q.Get("label"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "coordinates out of range")
			return
		}
		writeMapRegion(w, region)
		return
	}

	region, ok := a.nav.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no alert location to show")
		return
	}
	writeMapRegion(w, region)
}

func writeMapRegion(w http.ResponseWriter, region mapview.Region) {
	sw, ne := region.Bounds()
	writeJSON(w, http.StatusOK, struct {
		mapview.Region
		SouthWest model.Coordinates `json:"southWest"`
		NorthEast model.Coordinates `json:"northEast"`
		URL       string            `json:"url"`
	}{region, sw, ne, region.URL()})
}

func (a *App) handleTrustedContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := a.backend.TrustedContacts(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (a *App) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := a.backend.PendingRequests(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (a *App) handleSendSupportRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		RequestedID string `json:"requestedId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	requestedID := req.RequestedID
	if requestedID == "" && req.Email != "" {
		user, err := a.backend.SearchUser(r.Context(), req.Email)
		if err != nil {
			writeBackendError(w, err)
			return
		}
		requestedID = user.ID
	}
	if requestedID == "" {
		writeError(w, http.StatusBadRequest, "email or requestedId required")
		return
	}

	if err := a.backend.SendSupportRequest(r.Context(), requestedID); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) handleAcceptSupportRequest(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.AcceptSupportRequest(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleRejectSupportRequest(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.RejectSupportRequest(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handlePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.backend.Posts(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *App) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"conteudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "conteudo required")
		return
	}

	if err := a.backend.CreatePost(r.Context(), req.Content); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *App) handleComments(w http.ResponseWriter, r *http.Request) {
	comments, err := a.backend.Comments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (a *App) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"conteudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "conteudo required")
		return
	}

	if err := a.backend.CreateComment(r.Context(), mux.Vars(r)["id"], req.Content); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *App) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.backend.SupportGroups(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *App) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var group model.SupportGroup
	if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if group.Name == "" || group.Description == "" {
		writeError(w, http.StatusBadRequest, "nome and descricao required")
		return
	}

	if err := a.backend.CreateSupportGroup(r.Context(), group); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
