package handlers

import (
	"strings"

	"watchlist/pkg/middleware"
	"watchlist/pkg/models"
	"watchlist/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type MoviesHandler struct {
	service services.MovieService
}

func NewMovies(service services.MovieService) *MoviesHandler {
	return &MoviesHandler{service: service}
}

// GET /api/movies
func (h *MoviesHandler) List(c *fiber.Ctx) error {
	movies, err := h.service.List(c.UserContext(), middleware.Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(movies)
}

// POST /api/movies
func (h *MoviesHandler) Add(c *fiber.Ctx) error {
	var req models.AddMovieRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	movie, err := h.service.Add(c.UserContext(), middleware.Caller(c), req)
	if err != nil {
		return err
	}
	return c.JSON(movie)
}

// PUT /api/movies/:id?watched=bool
func (h *MoviesHandler) UpdateWatched(c *fiber.Ctx) error {
	raw := c.Query("watched")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "watched query parameter is required")
	}
	watched, ok := parseBool(raw)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "watched must be true or false")
	}

	movie, err := h.service.UpdateWatched(c.UserContext(), middleware.Caller(c), c.Params("id"), watched)
	if err != nil {
		return err
	}
	return c.JSON(movie)
}

// DELETE /api/movies/:id
func (h *MoviesHandler) Delete(c *fiber.Ctx) error {
	resp, err := h.service.Delete(c.UserContext(), middleware.Caller(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// parseBool accepts the usual query-string spellings of a boolean, case-insensitively.
func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "1", "yes", "y", "on":
		return true, true
	case "false", "f", "0", "no", "n", "off":
		return false, true
	}
	return false, false
}
