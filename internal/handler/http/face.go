package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// maxEnrollForm bounds the whole multipart body: ten images of at most 10MB.
const maxEnrollForm = 10 * face.MaxImageSize

type FaceHandler interface {
	Enroll(w http.ResponseWriter, r *http.Request)
	GetStatus(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type faceHandlerImpl struct {
	faceService face.Service
}

func NewFaceHandler(faceService face.Service) FaceHandler {
	return &faceHandlerImpl{
		faceService: faceService,
	}
}

// Enroll implements FaceHandler. Images are sent as repeated "images" parts.
func (h *faceHandlerImpl) Enroll(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEnrollForm)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := face.EnrollRequest{
		EmployeeID: employeeID,
		Images:     r.MultipartForm.File["images"],
	}

	result, err := h.faceService.Enroll(r.Context(), req)
	if err != nil {
		slog.Error("Enroll face error", "employee_id", employeeID, "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Face enrolled successfully", result)
}

// GetStatus implements FaceHandler.
func (h *faceHandlerImpl) GetStatus(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	result, err := h.faceService.GetStatus(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Delete implements FaceHandler.
func (h *faceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	if err := h.faceService.Delete(r.Context(), employeeID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Face descriptor deleted successfully", nil)
}
