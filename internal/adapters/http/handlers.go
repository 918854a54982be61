package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Counsel/internal/app"
	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	relay *app.Relay
}

type EnterRequest struct {
	Name string `form:"name" json:"name" binding:"required,displayname"`
	Role string `form:"role" json:"role" binding:"required,oneof=client counselor"`
	Room string `form:"room" json:"room" binding:"roomcode"`
}

type CreateRoomRequest struct {
	Code string `json:"code" binding:"roomcode"`
}

type RoomResponse struct {
	Room domain.RoomCode `json:"room"`
}

type RoomsResponse struct {
	Rooms []core.RoomInfo `json:"rooms"`
}

type MembersResponse struct {
	Room    domain.RoomCode  `json:"room"`
	Members []core.MemberDTO `json:"members"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// enter stores the identity a later websocket connection will resolve.
// A blank room asks for a fresh one.
func (h *handlers) enter(c *gin.Context) {
	var req EnterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid name, role or room"})
		return
	}

	room := trim(req.Room)
	if room == "" {
		room = string(domain.NewRoomCode())
	}
	ident, err := domain.NewIdentity(req.Name, req.Role, room)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if _, err := h.relay.CreateRoom(c.Request.Context(), ident.Room); err != nil {
		h.unavailable(c, err)
		return
	}

	s := sessions.Default(c)
	s.Set(app.SessionKeyName, ident.Name)
	s.Set(app.SessionKeyRole, ident.Role.String())
	s.Set(app.SessionKeyRoom, string(ident.Room))
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not save session"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(ident.Room)).Str("role", ident.Role.String()).Msg("entered")
	c.JSON(http.StatusOK, ident)
}

func (h *handlers) leave(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) whoAmI(c *gin.Context) {
	ident, ok := app.ResolveIdentity(sessions.Default(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no identity in session"})
		return
	}
	c.JSON(http.StatusOK, ident)
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: h.relay.Rooms.List()})
}

func (h *handlers) roomMembers(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))
	room, ok := h.relay.Rooms.Get(code)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, MembersResponse{Room: code, Members: room.MembersSnapshot()})
}

func (h *handlers) createRoom(c *gin.Context) {
	var req CreateRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room code"})
			return
		}
	}
	room, err := h.relay.CreateRoom(c.Request.Context(), domain.RoomCode(trim(req.Code)))
	if err != nil {
		h.unavailable(c, err)
		return
	}
	c.JSON(http.StatusCreated, RoomResponse{Room: room})
}

func (h *handlers) unavailable(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	if !errors.Is(err, app.ErrRelayStopped) {
		status = http.StatusRequestTimeout
	}
	log.Warn().Err(err).Str("module", "adapters.http").Msg("relay unavailable")
	c.JSON(status, ErrorResponse{Error: "service unavailable"})
}
