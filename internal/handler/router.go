/*
Package handler provides the HTTP handlers and routing setup for the PulseChat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"pulsechat/internal/pkg/limiter"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/resp"
)

const (
	AuthRate  = 0.2
	AuthBurst = 5
	WsRate    = 0.5
	WsBurst   = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WsRate), WsBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "PulseChat Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(authRoutes chi.Router) {
			authRoutes.Method(http.MethodPost, "/signup", authLimiter.Middleware(HandleSignup(deps)))
			authRoutes.Method(http.MethodPost, "/login", authLimiter.Middleware(HandleLogin(deps)))

			authRoutes.Group(func(pr chi.Router) {
				pr.Use(deps.Sessions.RequireAuth)
				pr.Post("/logout", HandleLogout(deps))
			})
		})

		api.Group(func(pr chi.Router) {
			pr.Use(deps.Sessions.RequireAuth)

			pr.Route("/user", func(user chi.Router) {
				user.Get("/me", HandleGetMe(deps))
				user.Post("/avatar/presign", HandlePresignAvatarURL(deps))
				user.Get("/avatar/download", HandleAvatarDownloadURL(deps))
				user.Delete("/avatar", HandleDeleteAvatar(deps))
				user.Post("/profile", HandleUpdateProfile(deps))
			})

			pr.Route("/rooms", func(rooms chi.Router) {
				rooms.Get("/", HandleListRooms(deps))
				rooms.Post("/", HandleCreateRoom(deps))

				rooms.Route("/{roomID}", func(room chi.Router) {
					room.Get("/", HandleGetRoom(deps))
					room.Post("/join", HandleJoinRoom(deps))

					room.Get("/messages", HandleListMessages(deps))
					room.Post("/messages", HandleSendMessage(deps))

					room.Put("/typing", HandleSetTyping(deps))
					room.Get("/typing", HandleGetTyping(deps))
				})
			})
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, wsLimiter, deps))

	return r
}
