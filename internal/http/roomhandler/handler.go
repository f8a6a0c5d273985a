package roomhandler

import (
	"chatrelay/internal/ws"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RoomReader is the read‑only side of the relay's room registry.
type RoomReader interface {
	Rooms() []ws.RoomInfo
	Room(name string) (ws.RoomInfo, bool)
}

type Handler struct {
	rooms RoomReader
}

func New(rooms RoomReader) *Handler { return &Handler{rooms: rooms} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/rooms", h.list)
	r.GET("/rooms/:name", h.info)
}

// @Summary		Liveness check
// @Tags			Health
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// @Summary		List rooms
// @Description	Returns the active rooms with their presence lists, sorted by name.
// @Tags			Rooms
// @Param			limit	query		int		false	"Max results (0‑500)"	minimum(0)	maximum(500)	default(50)
// @Param			offset	query		int		false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		ws.RoomInfo
// @Failure		400		{object}	ErrorResponse
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	var q ListRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	rooms := h.rooms.Rooms()
	if q.Offset >= len(rooms) {
		c.JSON(http.StatusOK, []ws.RoomInfo{})
		return
	}
	rooms = rooms[q.Offset:]
	if q.Limit > 0 && q.Limit < len(rooms) {
		rooms = rooms[:q.Limit]
	}
	c.JSON(http.StatusOK, rooms)
}

// @Summary		Get room presence
// @Description	Returns the usernames currently joined to a room.
// @Tags			Rooms
// @Param			name	path		string	true	"Room name"	default(general)
// @Success		200		{object}	ws.RoomInfo
// @Failure		404		{object}	ErrorResponse
// @Router			/rooms/{name} [get]
func (h *Handler) info(c *gin.Context) {
	room, ok := h.rooms.Room(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room " + c.Param("name") + " not found"})
		return
	}
	c.JSON(http.StatusOK, room)
}
