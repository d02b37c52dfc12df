package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"
	"rest-polls/internal/view"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ActorResolver turns a bearer token into an actor.
type ActorResolver interface {
	Actor(token string) (domain.Actor, error)
}

// Handler exposes the poll service over REST.
type Handler struct {
	service *app.PollService
	actors  ActorResolver
}

func NewHandler(service *app.PollService, actors ActorResolver) *Handler {
	return &Handler{service: service, actors: actors}
}

// Routes builds the router with logging and actor resolution applied.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(withRequestID, withLogging, h.withActor)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/polls", h.listPolls).Methods(http.MethodGet)
	r.HandleFunc("/polls", h.createPoll).Methods(http.MethodPost)
	r.HandleFunc("/polls/{id:[0-9]+}", h.getPoll).Methods(http.MethodGet)
	r.HandleFunc("/polls/{id:[0-9]+}", h.updatePoll).Methods(http.MethodPut)
	r.HandleFunc("/polls/{id:[0-9]+}", h.deletePoll).Methods(http.MethodDelete)

	r.HandleFunc("/process", h.process).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}/process", h.process).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", h.userResults).Methods(http.MethodGet)

	r.HandleFunc("/ws/process", NewWSHandler(h.service).ServeWS).Methods(http.MethodGet)
	return r
}

func (h *Handler) listPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListPolls(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Summaries(polls))
}

func (h *Handler) getPoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tree, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Detail(tree, view.ViewerFor(actorFrom(r.Context()))))
}

func (h *Handler) createPoll(w http.ResponseWriter, r *http.Request) {
	var in domain.PollInput
	if !decode(w, r, &in) {
		return
	}
	tree, err := h.service.CreatePoll(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.Detail(tree, view.Staff))
}

func (h *Handler) updatePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.PollInput
	if !decode(w, r, &in) {
		return
	}
	tree, err := h.service.UpdatePoll(r.Context(), actorFrom(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Detail(tree, view.Staff))
}

func (h *Handler) deletePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePoll(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if _, scoped := mux.Vars(r)["id"]; scoped {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		userID = &id
	}
	var in domain.ProcessInput
	if !decode(w, r, &in) {
		return
	}
	result, err := h.service.Process(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.Process(result))
}

func (h *Handler) userResults(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.UserResults(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.UserResults(user))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"id": "invalid id"})
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps the domain error taxonomy onto HTTP status codes and bodies.
func statusFor(err error) (int, any) {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."}
	case errors.Is(err, domain.ErrNotFound):
		if errors.As(err, &ve) {
			return http.StatusNotFound, ve.Fields
		}
		return http.StatusNotFound, map[string]string{"detail": err.Error()}
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Fields
	default:
		return http.StatusInternalServerError, map[string]string{"detail": "internal error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("request_id", requestIDFrom(r.Context())).Error("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode JSON response")
	}
}
