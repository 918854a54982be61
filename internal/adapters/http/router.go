package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dkeye/Counsel/internal/adapters/signal"
	"github.com/dkeye/Counsel/internal/app"
	"github.com/dkeye/Counsel/internal/config"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const sessionName = "CounselSessions"

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	if err := v.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return s != "" && utf8.RuneCountInString(s) <= domain.MaxNameLen
	}); err != nil {
		return fmt.Errorf("register displayname: %w", err)
	}
	if err := v.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) <= domain.MaxRoomCodeLen
	}); err != nil {
		return fmt.Errorf("register roomcode: %w", err)
	}
	return nil
}

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay, ctl *signal.SignalWSController) (*gin.Engine, error) {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := registerValidators(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("validators")
		return nil, err
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	h := &handlers{relay: relay}

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.POST("/enter", h.enter)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:code/members", h.roomMembers)
	api.POST("/rooms", h.createRoom)
	api.GET("/whoami", h.whoAmI)
	api.POST("/leave", h.leave)

	api.GET("/ws", func(c *gin.Context) {
		var ident *domain.Identity
		if resolved, ok := app.ResolveIdentity(sessions.Default(c)); ok {
			ident = &resolved
		}
		log.Info().Str("module", "adapters.http").Bool("identified", ident != nil).Msg("ws endpoint hit")
		ctl.HandleSignal(ctx, c, ident)
	})

	return r, nil
}

func trim(s string) string { return strings.TrimSpace(s) }
