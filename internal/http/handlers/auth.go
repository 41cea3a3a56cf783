package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-car-collection/internal/errors"
	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/pkg/validate"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := validate.Struct(in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if _, err := h.svc.Register(r.Context(), in.Name, in.Email, in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: "User registered successfully"})
}

// Login выставляет cookie accessToken и refreshToken; значения токенов в тело не попадают.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := validate.Struct(in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.jar.SetAccess(w, pair.AccessToken, pair.AccessExpiresAt)
	h.jar.SetRefresh(w, pair.RefreshToken, pair.RefreshExpiresAt)

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "login successful"})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.jar.Clear(w)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "logout successful"})
}

func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.VerifyResponse{
		Message: "authenticated",
		User:    models.UserToResponse(user),
	})
}
