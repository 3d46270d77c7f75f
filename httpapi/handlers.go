package httpapi

import (
	"errors"
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/middleware"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Profiles  []string  `json:"profiles"`
	Profile   string    `json:"profile,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		h.writeError(w, r, "healthz", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "login", err)
		return
	}
	res, err := h.engine.Login(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}
	middleware.SetSessionCookie(w, h.cfg.Cookie, res.SessionID, res.ExpiresAt)
	profiles := res.Profiles
	if profiles == nil {
		profiles = []string{}
	}
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:    res.UserID,
		Username:  res.Username,
		Profiles:  profiles,
		Profile:   res.Profile,
		ExpiresAt: res.ExpiresAt.UTC(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Logout(r.Context(), middleware.SessionIDFromContext(r.Context()))
	middleware.ClearSessionCookie(w, h.cfg.Cookie)
	if err != nil {
		h.writeError(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) profiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.engine.Profiles(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, "profiles", err)
		return
	}
	if profiles == nil {
		profiles = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"profiles": profiles})
}

func (h *Handler) selectProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile string `json:"profile"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "select_profile", err)
		return
	}
	if err := h.engine.SelectProfile(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Profile); err != nil {
		h.writeError(w, r, "select_profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.Home(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, "home", err)
		return
	}
	ops := make([]string, 0, len(info.Operations))
	for _, key := range info.Operations {
		ops = append(ops, key.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    info.UserID,
		"username":   info.Username,
		"email":      info.Email,
		"profile":    info.Profile,
		"operations": ops,
	})
}

func (h *Handler) verifyPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "verify_password", err)
		return
	}
	if err := h.engine.VerifyPassword(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Password); err != nil {
		h.writeError(w, r, "verify_password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current"`
		New     string `json:"new"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "change_password", err)
		return
	}
	if err := h.engine.ChangePassword(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Current, req.New); err != nil {
		h.writeError(w, r, "change_password", err)
		return
	}
	// Every session of the user, this one included, is gone.
	middleware.ClearSessionCookie(w, h.cfg.Cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startRecovery(mode goGate.RecoveryMode) http.HandlerFunc {
	operation := "recovery_" + mode.String()
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if err := h.decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, operation, err)
			return
		}

		current := middleware.SessionIDFromContext(r.Context())
		var (
			sessionID string
			err       error
		)
		if mode == goGate.RecoveryUnlock {
			sessionID, err = h.engine.StartUnlock(r.Context(), current, req.Username)
		} else {
			sessionID, err = h.engine.StartForgotPassword(r.Context(), current, req.Username)
		}
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		middleware.SetSessionCookie(w, h.cfg.Cookie, sessionID, time.Time{})
		writeJSON(w, http.StatusCreated, map[string]string{"mode": mode.String()})
	}
}

func (h *Handler) questions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.engine.LoadQuestions(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, "recovery_questions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}

func (h *Handler) answers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []string `json:"answers"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "recovery_answers", err)
		return
	}
	res, err := h.engine.SubmitAnswers(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Answers)
	if err != nil {
		// The challenge is gone after a terminal failure or a spent budget.
		if errors.Is(err, goGate.ErrRecoveryFailed) || errors.Is(err, goGate.ErrRecoveryRateLimited) {
			middleware.ClearSessionCookie(w, h.cfg.Cookie)
		}
		h.writeError(w, r, "recovery_answers", err)
		return
	}
	middleware.ClearSessionCookie(w, h.cfg.Cookie)
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":     res.Mode.String(),
		"notified": res.Notified,
	})
}

func (h *Handler) abandonRecovery(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.AbandonRecovery(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
		h.writeError(w, r, "recovery_abandon", err)
		return
	}
	middleware.ClearSessionCookie(w, h.cfg.Cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var req goGate.InvokeRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "process", err)
		return
	}
	result, err := h.engine.Invoke(r.Context(), middleware.SessionIDFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, "process", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
