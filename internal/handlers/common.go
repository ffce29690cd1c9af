package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func actorFromCtx(c *fiber.Ctx) (int64, string, error) {
	rawID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)

	actorID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || actorID <= 0 {
		return 0, "", errors.New("invalid subject id")
	}
	return actorID, role, nil
}

// decodeStrict parses a JSON body rejecting unknown fields and trailing data.
func decodeStrict(c *fiber.Ctx, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(c.Body()))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func parseIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 && limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// mapServiceError translates the service error taxonomy to HTTP. Invalid
// transitions are caller mistakes, so they come back as 400s; optimistic
// update losses surface as 409.
func mapServiceError(c *fiber.Ctx, err error, resource string) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrNotStarted):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid state transition"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict"})
	case errors.Is(err, services.ErrLawyerNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": resource + " not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
