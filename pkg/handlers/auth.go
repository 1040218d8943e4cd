package handlers

import (
	"watchlist/pkg/middleware"
	"watchlist/pkg/models"
	"watchlist/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	service services.AuthService
}

func NewAuth(service services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.service.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// POST /api/auth/login (form-encoded or JSON)
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.service.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GET /api/auth/me (auth required)
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.Caller(c))
}
