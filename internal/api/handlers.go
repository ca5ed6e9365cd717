// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/blogauth/blogauth/internal/auth"
)

// Response messages.
const (
	msgRegistered = "User registered successfully"
	msgLoggedIn   = "Login successful"
	msgLoggedOut  = "Logout successful"
	msgBanner     = "Hello from Blogging App Server"
	msgBadBody    = "Invalid request body"
)

// AuthService is the part of auth.Service the handlers call.
type AuthService interface {
	Signup(ctx context.Context, fullName, email, password string) (*auth.UserCredential, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	GetProfile(ctx context.Context, token string) (*auth.UserCredential, error)
	Logout(ctx context.Context)
}

// SignupRequest is the signup body. JSON and form encodings are accepted.
type SignupRequest struct {
	FullName string `json:"fullname" form:"fullname"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"` //nolint:gosec // request field, not a secret
}

// LoginRequest is the login body.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"` //nolint:gosec // request field, not a secret
}

// SignupResponse is returned with 201.
type SignupResponse struct {
	Message string               `json:"message"`
	User    *auth.UserCredential `json:"user"`
}

// LoginResponse is returned with 200.
type LoginResponse struct {
	Message string               `json:"message"`
	Token   string               `json:"token"`
	User    *auth.UserCredential `json:"user"`
}

// ProfileResponse is returned with 200.
type ProfileResponse struct {
	User *auth.UserCredential `json:"user"`
}

// MessageResponse carries a bare message.
type MessageResponse struct {
	Message string `json:"message"`
}

func (h *handler) root(c *gin.Context) {
	c.String(http.StatusOK, msgBanner)
}

func (h *handler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, h.logger, badBody(err))
		return
	}

	user, err := h.svc.Signup(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, SignupResponse{Message: msgRegistered, User: user})
}

func (h *handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, h.logger, badBody(err))
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.cookies.set(c, res.Token)
	c.JSON(http.StatusOK, LoginResponse{Message: msgLoggedIn, Token: res.Token, User: res.User})
}

func (h *handler) profile(c *gin.Context) {
	user, err := h.svc.GetProfile(c.Request.Context(), requestToken(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{User: user})
}

func (h *handler) logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context())
	h.cookies.clear(c)
	c.JSON(http.StatusOK, MessageResponse{Message: msgLoggedOut})
}

func badBody(err error) error {
	return oops.Code(auth.CodeValidation).With("cause", err.Error()).Errorf(msgBadBody)
}
