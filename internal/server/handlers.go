package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"minichat/internal/apperr"
	"minichat/internal/audit"
	"minichat/internal/chat"
	"minichat/internal/credential"
	"minichat/internal/storage"
)

type parsers struct {
	createMessagePool fastjson.ParserPool
	editMessagePool   fastjson.ParserPool
}

type handler struct {
	logger       *zap.SugaredLogger
	chat         *chat.Service
	credentials  *credential.Service
	audit        *audit.Service
	metrics      *metrics
	maxBodyBytes int64
	trustProxy   bool
	parsers      parsers
}

// failureMessages maps a response status to the error text returned for it
type failureMessages map[int]string

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

func writeError(w http.ResponseWriter, status int, msg string) error {
	return writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) respond(w http.ResponseWriter, status int, payload interface{}) {
	if err := writeJSON(w, status, payload); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, errorResponse{Error: msg})
}

// fail answers with the status matching err's kind. Internal errors surface their text.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, msgs failureMessages) {
	if apperr.IsInternal(err) {
		h.logger.Errorw(err.Error(), fieldsOf(r.Context())...)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := statusOf(err)
	msg, ok := msgs[status]
	if !ok {
		msg = http.StatusText(status)
	}
	h.writeError(w, status, msg)
}

// caller returns the authenticated user id, authenticate guarantees its presence on protected routes
func caller(r *http.Request) uuid.UUID {
	claims, _ := claimsFromContext(r.Context())
	return claims.UserID
}

// register handles HTTP requests on "/api/register" endpoint
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u, err := h.credentials.Register(r.Context(), credential.Registration{
		Email:    fastjson.GetString(body, "email"),
		Name:     fastjson.GetString(body, "name"),
		Password: fastjson.GetString(body, "password"),
	})
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusBadRequest: "Registration failed due to validation errors",
			http.StatusConflict:   "Registration failed because the email is already registered",
		})
		return
	}

	h.respond(w, http.StatusOK, registerResponse{
		Message:  "Registration successful",
		UserID:   u.ID,
		FullName: u.Name,
		Email:    u.Email,
	})
}

// login handles HTTP requests on "/api/login" endpoint
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u, err := h.credentials.Verify(r.Context(), credential.Login{
		Email:    fastjson.GetString(body, "email"),
		Password: fastjson.GetString(body, "password"),
	})
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusBadRequest:   "Login failed due to validation errors",
			http.StatusUnauthorized: "Login failed due to incorrect credentials",
		})
		return
	}

	token, err := h.credentials.Issue(u)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}

	h.respond(w, http.StatusOK, loginResponse{
		Message: "Login successfully done",
		Token:   token,
		Profile: newUserView(u),
	})
}

// listUsers handles HTTP requests on "/api/users" endpoint
func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.chat.ListPeers(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusUnauthorized: "Unauthorized access",
		})
		return
	}

	h.respond(w, http.StatusOK, usersResponse{
		Message: "User Retrieve List successfully done",
		Users:   lo.Map(users, func(u storage.User, _ int) userView { return newUserView(u) }),
	})
}

// logs handles HTTP requests on "/api/log" endpoint
func (h *handler) logs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	start, err := parseTime(query.Get("startTime"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request parameters")
		return
	}
	end, err := parseTime(query.Get("endTime"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request parameters")
		return
	}

	entries, err := h.audit.GetLogs(r.Context(), start, end)
	if err != nil {
		h.fail(w, r, err, failureMessages{
			http.StatusBadRequest: "Invalid request parameters",
			http.StatusNotFound:   "No logs found",
		})
		return
	}

	h.respond(w, http.StatusOK, logsResponse{
		Message: "Log list received successfully",
		Logs:    lo.Map(entries, func(e storage.LogEntry, _ int) logView { return newLogView(e) }),
	})
}

// parseTime reads an optional RFC 3339 timestamp, blank input yields nil
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func newUserView(u storage.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email}
}

func newLogView(e storage.LogEntry) logView {
	return logView{
		ID:          e.ID,
		IP:          e.IP,
		RequestBody: e.RequestBody,
		Timestamp:   e.Timestamp,
		Username:    e.Username,
	}
}
