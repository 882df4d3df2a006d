package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-ticketing/internal/model"
    "github.com/iliyamo/movie-ticketing/internal/repository"
)

// HallHandler serves hall management endpoints.  Halls are admin-only
// on writes and readable by any authenticated user.
type HallHandler struct {
    Halls *repository.HallRepo
}

func NewHallHandler(halls *repository.HallRepo) *HallHandler {
    return &HallHandler{Halls: halls}
}

type createHallReq struct {
    Name     string `json:"name"`
    HallType string `json:"hall_type"`
    SeatRows uint32 `json:"seat_rows"`
    SeatCols uint32 `json:"seat_cols"`
}

// Create registers a new hall layout.  The layout is validated up
// front: a hall that cannot be materialized into seats is rejected
// before it ever reaches the database.
func (h *HallHandler) Create(c echo.Context) error {
    var req createHallReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
    }
    hall := &model.Hall{
        Name:     req.Name,
        HallType: strings.TrimSpace(req.HallType),
        SeatRows: req.SeatRows,
        SeatCols: req.SeatCols,
    }
    if !hall.ValidLayout() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat layout"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Halls.Create(ctx, hall); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hall failed"})
    }
    return c.JSON(http.StatusCreated, hall)
}

// Get returns a single hall by ID.
func (h *HallHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hall id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    hall, err := h.Halls.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrHallNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, hall)
}

// List returns all halls.
func (h *HallHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    halls, err := h.Halls.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"halls": halls})
}
