package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"
)

// SessionStopper ends the recognition session of a revoked kiosk.
type SessionStopper interface {
	StopKiosk(kioskID string)
}

// DeviceServiceImpl registers kiosk devices and logs them in.
type DeviceServiceImpl struct {
	kiosk.DeviceRepository
	jwt.Service
	sessions SessionStopper
	now      func() time.Time
}

var _ kiosk.DeviceService = (*DeviceServiceImpl)(nil)

func NewDeviceService(deviceRepository kiosk.DeviceRepository, jwtService jwt.Service, sessions SessionStopper) *DeviceServiceImpl {
	return &DeviceServiceImpl{
		DeviceRepository: deviceRepository,
		Service:          jwtService,
		sessions:         sessions,
		now:              time.Now,
	}
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Register implements kiosk.DeviceService.
func (s *DeviceServiceImpl) Register(ctx context.Context, req kiosk.RegisterDeviceRequest) (kiosk.RegisterDeviceResponse, error) {
	if err := req.Validate(); err != nil {
		return kiosk.RegisterDeviceResponse{}, err
	}

	companyID, err := ownerCompany(ctx)
	if err != nil {
		return kiosk.RegisterDeviceResponse{}, err
	}

	secret, err := generateSecret()
	if err != nil {
		return kiosk.RegisterDeviceResponse{}, fmt.Errorf("failed to generate device secret: %w", err)
	}
	hash, err := hashSecret(secret)
	if err != nil {
		return kiosk.RegisterDeviceResponse{}, fmt.Errorf("failed to hash device secret: %w", err)
	}

	device, err := s.DeviceRepository.Create(ctx, kiosk.Device{
		CompanyID:  companyID,
		Name:       req.Name,
		SecretHash: hash,
	})
	if err != nil {
		return kiosk.RegisterDeviceResponse{}, err
	}

	slog.Info("Kiosk device registered", "company_id", companyID, "device_id", device.ID)
	return kiosk.RegisterDeviceResponse{ID: device.ID, Name: device.Name, Secret: secret}, nil
}

// List implements kiosk.DeviceService.
func (s *DeviceServiceImpl) List(ctx context.Context) ([]kiosk.DeviceResponse, error) {
	companyID, err := ownerCompany(ctx)
	if err != nil {
		return nil, err
	}

	devices, err := s.DeviceRepository.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	responses := make([]kiosk.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		resp := kiosk.DeviceResponse{
			ID:        d.ID,
			Name:      d.Name,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
			Revoked:   d.IsRevoked(),
		}
		if d.LastLoginAt != nil {
			v := d.LastLoginAt.Format(time.RFC3339)
			resp.LastLoginAt = &v
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Revoke implements kiosk.DeviceService.
func (s *DeviceServiceImpl) Revoke(ctx context.Context, id string) error {
	companyID, err := ownerCompany(ctx)
	if err != nil {
		return err
	}

	if err := s.DeviceRepository.Revoke(ctx, id, companyID, s.now()); err != nil {
		return err
	}
	s.Service.RevokeKiosk(id)
	if s.sessions != nil {
		s.sessions.StopKiosk(id)
	}

	slog.Info("Kiosk device revoked", "company_id", companyID, "device_id", id)
	return nil
}

// SyncRevocations loads every revoked device into the token revocation set.
// Revocations made on another replica, or before a restart, only reach this
// process through here.
func (s *DeviceServiceImpl) SyncRevocations(ctx context.Context) error {
	ids, err := s.DeviceRepository.ListRevokedIDs(ctx)
	if err != nil {
		return err
	}
	added := 0
	for _, id := range ids {
		if s.Service.IsKioskRevoked(id) {
			continue
		}
		s.Service.RevokeKiosk(id)
		if s.sessions != nil {
			s.sessions.StopKiosk(id)
		}
		added++
	}
	if added > 0 {
		slog.Info("Kiosk revocations synced", "added", added, "total", len(ids))
	}
	return nil
}

// Login implements kiosk.DeviceService.
func (s *DeviceServiceImpl) Login(ctx context.Context, req kiosk.LoginRequest) (kiosk.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return kiosk.LoginResponse{}, err
	}

	device, err := s.DeviceRepository.GetByID(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, kiosk.ErrDeviceNotFound) {
			return kiosk.LoginResponse{}, auth.ErrInvalidCredentials
		}
		return kiosk.LoginResponse{}, fmt.Errorf("failed to get kiosk device: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(device.SecretHash), []byte(req.Secret)); err != nil {
		return kiosk.LoginResponse{}, auth.ErrInvalidCredentials
	}
	if device.IsRevoked() {
		return kiosk.LoginResponse{}, auth.ErrDeviceRevoked
	}

	token, expiresAt, err := s.Service.GenerateKioskToken(device.ID, device.CompanyID)
	if err != nil {
		return kiosk.LoginResponse{}, fmt.Errorf("failed to create kiosk token: %w", err)
	}

	if err := s.DeviceRepository.TouchLogin(ctx, device.ID, s.now()); err != nil {
		slog.Warn("Failed to record kiosk login", "device_id", device.ID, "error", err)
	}

	return kiosk.LoginResponse{AccessToken: token, ExpiresAt: expiresAt}, nil
}

func ownerCompany(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	role, _ := claims["role"].(string)
	if role != string(user.RoleOwner) {
		return "", user.ErrOwnerAccessRequired
	}
	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", user.ErrCompanyIDRequired
	}
	return companyID, nil
}
