package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"samayan-ad-pro/internal/ad"
	"samayan-ad-pro/internal/session"
)

//go:embed static/*
var staticFS embed.FS

const sessionCookie = "sid"

type Options struct {
	Sessions       *session.Store
	Logger         *slog.Logger
	RequestTimeout time.Duration
	SecureCookies  bool
}

type Server struct {
	sessions       *session.Store
	logger         *slog.Logger
	requestTimeout time.Duration
	secureCookies  bool
	validate       *validator.Validate
}

type apiError struct {
	Error  string    `json:"error"`
	Status ad.Status `json:"status,omitempty"`
}

type onboardRequest struct {
	Name string `json:"name"`
}

type generateRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	AspectRatio string `json:"aspectRatio" validate:"omitempty,oneof=1:1 16:9 9:16 square landscape portrait"`
}

type stateResponse struct {
	User   session.UserState `json:"user"`
	Status ad.Status         `json:"status"`
	Error  string            `json:"error,omitempty"`
	Result *ad.Result        `json:"result,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		sessions:       opts.Sessions,
		logger:         logger,
		requestTimeout: timeout,
		secureCookies:  opts.SecureCookies,
		validate:       validate,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/onboard", s.handleOnboard)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/ads/{id}/image", s.handleDownload)
	mux.HandleFunc("GET /api/status/ws", s.handleStatusStream)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(staticSub)))

	return withLogging(mux, s.logger)
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess := s.session(w, r)
	user, err := sess.Onboard(req.Name)
	if errors.Is(err, session.ErrEmptyName) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: session.MessageNameRequired})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	snap := sess.Orchestrator.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		User:   sess.User(),
		Status: snap.Status,
		Error:  snap.Message,
		Result: snap.Result,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if !sess.User().IsOnboarded {
		writeJSON(w, http.StatusForbidden, apiError{Error: "onboarding required"})
		return
	}

	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ratio, err := ad.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := sess.Orchestrator.Submit(ctx, req.Prompt, ratio)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, ad.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, apiError{Error: "prompt is required"})
	case errors.Is(err, ad.ErrBusy):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error(), Status: sess.Orchestrator.Snapshot().Status})
	case ad.IsKind(err, ad.KindConfig):
		writeJSON(w, http.StatusInternalServerError, apiError{Error: ad.UserMessage(err), Status: ad.StatusError})
	default:
		writeJSON(w, http.StatusBadGateway, apiError{Error: ad.UserMessage(err), Status: ad.StatusError})
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	result := sess.Orchestrator.Snapshot().Result
	if result == nil || result.ID != r.PathValue("id") {
		http.NotFound(w, r)
		return
	}

	data, err := result.ImageBytes()
	if err != nil {
		s.logger.Error("decode stored image failed", "id", result.ID, "err", err)
		http.Error(w, "image unavailable", http.StatusInternalServerError)
		return
	}

	contentType := result.MimeType()
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("content-type", contentType)
	w.Header().Set("content-length", strconv.Itoa(len(data)))
	w.Header().Set("content-disposition", `attachment; filename="`+result.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	const maxBodyBytes = 64 << 10
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: validationMessage(err)})
		return false
	}
	return true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if sess, ok := s.existingSession(r); ok {
		return sess
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return s.sessions.GetOrCreate(id)
}

func (s *Server) existingSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return s.sessions.Get(c.Value)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "oneof":
			return fe.Field() + " must be one of " + fe.Param()
		}
		return fe.Field() + " is invalid"
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
