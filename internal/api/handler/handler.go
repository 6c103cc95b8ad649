package handler

import (
	"nativeteacher/backend/internal/dispatch"
	"nativeteacher/backend/internal/storage"
)

// Handler holds the webhook dispatcher and what the HTTP surface needs.
type Handler struct {
	Dispatcher  *dispatch.Dispatcher
	Storage     storage.ProfileStore
	VerifyToken string
	AdminSecret string
	JWTSecret   []byte
}

func NewHandler(d *dispatch.Dispatcher, s storage.ProfileStore, verifyToken, adminSecret, jwtSecret string) *Handler {
	return &Handler{
		Dispatcher:  d,
		Storage:     s,
		VerifyToken: verifyToken,
		AdminSecret: adminSecret,
		JWTSecret:   []byte(jwtSecret),
	}
}
