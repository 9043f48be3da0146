package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/staffdesk/ops-system/internal/session"
)

// SessionHandler exposes the session store to clients: sign-in/sign-out
// plus a snapshot of {principal, role, loading, error, offline}. This is
// the transport rendering of the accessor the UI hooks consume.
type SessionHandler struct {
	store *session.Store
}

func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	State     string `json:"state"`
	Principal string `json:"principal,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	Loading   bool   `json:"loading"`
	Error     string `json:"error,omitempty"`
	Offline   bool   `json:"offline"`
}

func toSessionResponse(snap session.Snapshot) sessionResponse {
	resp := sessionResponse{
		State:   string(snap.State),
		Role:    string(snap.Role),
		IsAdmin: snap.IsAdmin(),
		Loading: snap.Loading,
		Error:   snap.Err,
		Offline: snap.Offline,
	}
	if snap.Principal != nil {
		resp.Principal = snap.Principal.ID
		resp.Email = snap.Principal.Email
	}
	return resp
}

// Get returns the current session snapshot.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, toSessionResponse(h.store.Snapshot()))
}

// SignIn authenticates and resolves the caller's role. A degraded
// (offline) session is still a 200: availability is preferred over role
// accuracy.
//
// @Summary      Sign in
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/session/signin [post]
func (h *SessionHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.store.SignIn(c.Request().Context(), req.Email, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(h.store.Snapshot()))
}

// SignOut clears the session.
//
// @Summary      Sign out
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session/signout [post]
func (h *SessionHandler) SignOut(c echo.Context) error {
	if err := h.store.SignOut(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(h.store.Snapshot()))
}
