package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/hris-face-attendance/internal/config"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-face-attendance/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	app config.AppConfig,
	JWTService jwt.Service,
	kioskHandler KioskHandler,
	faceHandler FaceHandler,
	attendanceHandler AttendanceHandler,
	visitorHandler VisitorHandler,
	uploadsDir string,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", app.Name),
		slog.String("version", app.Version),
		slog.String("env", app.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
		// Frame sockets and event streams live for the whole session.
		Skip: func(req *http.Request, respStatus int) bool {
			return req.Header.Get("Upgrade") == "websocket" || req.Header.Get("Accept") == "text/event-stream"
		},
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", metrics.Handler())

	// Visitor snapshots on the local storage driver. Image tags cannot send
	// headers, so ?jwt= is accepted here too.
	if uploadsDir != "" {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth(), JWTService))
			r.Use(middleware.RequirePermission(user.PermissionVisitorView))
			r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))
		})
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/kiosk", func(r chi.Router) {
			r.Post("/login", kioskHandler.Login)

			// The event stream authenticates with its own stream token
			r.Get("/sessions/{id}/events", kioskHandler.Events)

			// Kiosk device token; websockets cannot set headers so the
			// token may also come as ?jwt=
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
				r.Use(middleware.AuthRequired(JWTService.JWTAuth(), JWTService))
				r.Use(middleware.RequireKiosk)

				r.Post("/sessions", kioskHandler.StartSession)
				r.Route("/sessions/{id}", func(r chi.Router) {
					r.Delete("/", kioskHandler.StopSession)
					r.Post("/reset", kioskHandler.ResetSession)
					r.Post("/verify", kioskHandler.ManualVerify)
					r.Get("/frames", kioskHandler.Frames)
				})
			})

			// Device management
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired(JWTService.JWTAuth(), JWTService))
				r.Use(middleware.RequirePermission(user.PermissionKioskManage))

				r.Post("/devices", kioskHandler.RegisterDevice)
				r.Get("/devices", kioskHandler.ListDevices)
				r.Delete("/devices/{id}", kioskHandler.RevokeDevice)
			})
		})

		// Requires an operator token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth(), JWTService))
			r.Use(middleware.RequireManager)

			r.Route("/faces/{employeeID}", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionFaceView)).Get("/", faceHandler.GetStatus)
				r.With(middleware.RequirePermission(user.PermissionFaceEnroll)).Post("/", faceHandler.Enroll)
				r.With(middleware.RequirePermission(user.PermissionFaceDelete)).Delete("/", faceHandler.Delete)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceViewAll))
				r.Get("/timestamps", attendanceHandler.ListTimestamps)
				r.Get("/summary", attendanceHandler.GetSummary)
			})

			r.With(middleware.RequirePermission(user.PermissionVisitorView)).Get("/visitors", visitorHandler.List)
		})
	})
	return r
}
