package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

// SessionManager is the session service plus the hooks the streaming
// endpoints need.
type SessionManager interface {
	kiosk.SessionService
	Feed(ctx context.Context, sessionID string) (*camera.FeedSource, string, error)
	Exists(sessionID string, companyID string) bool
}

type KioskHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	RegisterDevice(w http.ResponseWriter, r *http.Request)
	ListDevices(w http.ResponseWriter, r *http.Request)
	RevokeDevice(w http.ResponseWriter, r *http.Request)
	StartSession(w http.ResponseWriter, r *http.Request)
	StopSession(w http.ResponseWriter, r *http.Request)
	ResetSession(w http.ResponseWriter, r *http.Request)
	ManualVerify(w http.ResponseWriter, r *http.Request)
	Frames(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

type kioskHandlerImpl struct {
	deviceService kiosk.DeviceService
	sessions      SessionManager
	hub           *sse.Hub
	jwtService    jwt.Service
	keepalive     time.Duration
}

func NewKioskHandler(deviceService kiosk.DeviceService, sessions SessionManager, hub *sse.Hub, jwtService jwt.Service) KioskHandler {
	return &kioskHandlerImpl{
		deviceService: deviceService,
		sessions:      sessions,
		hub:           hub,
		jwtService:    jwtService,
		keepalive:     30 * time.Second,
	}
}

// Login implements KioskHandler.
func (h *kioskHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var req kiosk.LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Kiosk login decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.deviceService.Login(r.Context(), req)
	if err != nil {
		slog.Warn("Kiosk login failed", "device_id", req.DeviceID, "error", err)
		response.HandleError(w, err)
		return
	}

	slog.Info("Kiosk logged in", "device_id", req.DeviceID)
	response.SuccessWithMessage(w, "Login successful", result)
}

// RegisterDevice implements KioskHandler.
func (h *kioskHandlerImpl) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req kiosk.RegisterDeviceRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.deviceService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Kiosk device registered, store the secret now: it is not shown again", result)
}

// ListDevices implements KioskHandler.
func (h *kioskHandlerImpl) ListDevices(w http.ResponseWriter, r *http.Request) {
	result, err := h.deviceService.List(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// RevokeDevice implements KioskHandler.
func (h *kioskHandlerImpl) RevokeDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Device ID is required", nil)
		return
	}

	if err := h.deviceService.Revoke(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Kiosk device revoked", nil)
}

// StartSession implements KioskHandler.
func (h *kioskHandlerImpl) StartSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.Start(r.Context())
	if err != nil {
		slog.Error("Start kiosk session error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Session started", result)
}

// StopSession implements KioskHandler.
func (h *kioskHandlerImpl) StopSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Stop(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Session stopped", nil)
}

// ResetSession implements KioskHandler.
func (h *kioskHandlerImpl) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Session reset", nil)
}

// ManualVerify implements KioskHandler.
func (h *kioskHandlerImpl) ManualVerify(w http.ResponseWriter, r *http.Request) {
	var req kiosk.ManualVerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.sessions.ManualVerify(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Frames implements KioskHandler. The kiosk keeps one websocket open per
// session and sends one encoded image per binary message.
func (h *kioskHandlerImpl) Frames(w http.ResponseWriter, r *http.Request) {
	feed, kioskID, err := h.sessions.Feed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	conn, err := camera.Upgrade(w, r)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Warn("Frame websocket upgrade failed", "kiosk_id", kioskID, "error", err)
		return
	}

	slog.Info("Frame stream connected", "kiosk_id", kioskID)
	if err := camera.Ingest(r.Context(), conn, feed, kioskID); err != nil {
		slog.Warn("Frame stream ended", "kiosk_id", kioskID, "error", err)
		return
	}
	slog.Info("Frame stream closed", "kiosk_id", kioskID)
}

// Events implements KioskHandler. Browsers cannot set headers on an
// EventSource, so the stream token travels in the query string.
func (h *kioskHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	sessionID, companyID, err := h.jwtService.ValidateStreamToken(tokenStr)
	if err != nil || sessionID != chi.URLParam(r, "id") {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	if !h.sessions.Exists(sessionID, companyID) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(sessionID)
	defer cleanup()
	slog.Info("Kiosk event stream connected", "session_id", sessionID, "subscribers", h.hub.SubscriberCount(sessionID))

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"session_id\":\"%s\"}\n\n", sessionID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

			if fb, ok := event.Data.(kiosk.Feedback); ok && fb.State == kiosk.StateStopped {
				return
			}

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
