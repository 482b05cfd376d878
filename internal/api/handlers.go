package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ratedesk/internal/calendar"
	"ratedesk/internal/jalali"
	"ratedesk/internal/models"
)

type openRequest struct {
	RoomID      int64 `json:"room_id"`
	BoardTypeID int64 `json:"board_type_id"`
}

type clickRequest struct {
	Date  string `json:"date"`
	Shift bool   `json:"shift"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type filterRequest struct {
	Mode string `json:"mode"`
}

type navigateRequest struct {
	Months int `json:"months"`
}

type idRequest struct {
	RoomID      int64 `json:"room_id"`
	BoardTypeID int64 `json:"board_type_id"`
}

type menuOpenRequest struct {
	Date string `json:"date"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *HTTPServer) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.RoomID == 0 || req.BoardTypeID == 0 {
		writeError(w, http.StatusBadRequest, "room_id and board_type_id are required")
		return
	}

	view, err := s.svc.Open(r.Context(), operatorFrom(r), req.RoomID, req.BoardTypeID)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	view, err := s.svc.View(r.Context(), operatorFrom(r))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	d, err := parseJalaliDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.Click(r.Context(), operatorFrom(r), d, req.Shift)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleRangeEdit(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	view, err := s.svc.RangeEdit(r.Context(), operatorFrom(r))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleFields(w http.ResponseWriter, r *http.Request) {
	var req calendar.Fields
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Price < 0 || req.ExtraPrice < 0 || req.ChildPrice < 0 || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "negative values are not allowed")
		return
	}

	view, err := s.svc.SetFields(r.Context(), operatorFrom(r), req)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleSave(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	view, err := s.svc.Save(r.Context(), operatorFrom(r))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	view, err := s.svc.Cancel(r.Context(), operatorFrom(r))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	d, err := parseJalaliDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.Copy(r.Context(), operatorFrom(r), d)
	s.respond(w, view, err)
}

func (s *HTTPServer) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	d, err := parseJalaliDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.Paste(r.Context(), operatorFrom(r), d)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	view, err := s.svc.SetFilter(r.Context(), operatorFrom(r), models.FilterMode(req.Mode))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Months == 0 {
		writeError(w, http.StatusBadRequest, "months must be non-zero")
		return
	}

	view, err := s.svc.Navigate(r.Context(), operatorFrom(r), req.Months)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	view, err := s.svc.Refresh(r.Context(), operatorFrom(r))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleSelectRoom(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.RoomID == 0 {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	view, err := s.svc.SelectRoom(r.Context(), operatorFrom(r), req.RoomID)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleSelectBoard(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.BoardTypeID == 0 {
		writeError(w, http.StatusBadRequest, "board_type_id is required")
		return
	}

	view, err := s.svc.SelectBoard(r.Context(), operatorFrom(r), req.BoardTypeID)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleMenuOpen(w http.ResponseWriter, r *http.Request) {
	var req menuOpenRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	d, err := parseJalaliDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.svc.OpenMenu(r.Context(), operatorFrom(r), d, req.X, req.Y)
	s.respond(w, view, err)
}

func (s *HTTPServer) handleMenuClose(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	view, err := s.svc.CloseMenu(r.Context(), operatorFrom(r))
	s.respond(w, view, err)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export is not enabled")
		return
	}

	st, err := s.svc.State(r.Context(), operatorFrom(r))
	if err != nil {
		s.respond(w, nil, err)
		return
	}

	path, err := s.exporter.MonthToExcel(st)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

func (s *HTTPServer) handleBoardTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	boardTypes, err := s.svc.BoardTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board_types": boardTypes})
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms, err := s.svc.Rooms(r.Context(), s.hotelID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.auditor == nil {
		writeError(w, http.StatusNotFound, "audit is not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := s.auditor.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *HTTPServer) decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !s.requirePost(w, r) {
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// respond maps service errors onto HTTP statuses.
func (s *HTTPServer) respond(w http.ResponseWriter, view *calendar.MonthView, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, view)
		return
	}

	switch {
	case errors.Is(err, calendar.ErrNoSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, calendar.ErrFetchInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, calendar.ErrNotReady),
		errors.Is(err, calendar.ErrNoEdit),
		errors.Is(err, calendar.ErrNoRangeSelected),
		errors.Is(err, calendar.ErrEmptyClipboard),
		errors.Is(err, calendar.ErrCopyRequiresPrice),
		errors.Is(err, calendar.ErrInvalidFilter),
		errors.Is(err, calendar.ErrMonthOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		// Anything else came from the pricing backend or the state store.
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func parseJalaliDate(s string) (jalali.Date, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &y, &m, &d); err != nil {
		return jalali.Date{}, fmt.Errorf("invalid date %q; expected YYYY/MM/DD", s)
	}
	date := jalali.Date{Year: y, Month: m, Day: d}
	if !date.Valid() {
		return jalali.Date{}, fmt.Errorf("date %q is out of range", s)
	}
	return date, nil
}
