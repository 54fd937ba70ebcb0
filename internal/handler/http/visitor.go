package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
	"github.com/cmlabs-hris/hris-face-attendance/internal/handler/http/response"
)

type VisitorHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

type visitorHandlerImpl struct {
	visitorService visitor.Service
}

func NewVisitorHandler(visitorService visitor.Service) VisitorHandler {
	return &visitorHandlerImpl{
		visitorService: visitorService,
	}
}

// List implements VisitorHandler.
func (h *visitorHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := visitor.CaptureFilter{}

	if kioskID := r.URL.Query().Get("kiosk_id"); kioskID != "" {
		filter.KioskID = &kioskID
	}
	if startDate := r.URL.Query().Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := r.URL.Query().Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	if p := r.URL.Query().Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			filter.Page = pageNum
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil {
			filter.Limit = limitNum
		}
	}

	results, err := h.visitorService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}
