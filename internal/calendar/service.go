package calendar

import (
	"context"
	"sync/atomic"
	"time"

	"ratedesk/internal/domain"
	"ratedesk/internal/holidays"
	"ratedesk/internal/jalali"
	"ratedesk/internal/metrics"
	"ratedesk/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service drives the rate/inventory calendar for operators: it owns the
// selection and edit-session transitions, converts dates at the backend
// boundary and persists per-operator state between calls.
type Service struct {
	pricing    domain.PricingAPI
	states     domain.StateRepository
	auditor    domain.Auditor
	notifier   domain.Notifier
	classifier *holidays.Classifier
	logger     zerolog.Logger
	now        func() jalali.Date

	fetching atomic.Bool
	saving   atomic.Bool
}

// Option adjusts optional Service collaborators.
type Option func(*Service)

// WithAuditor wires the save-attempt audit trail.
func WithAuditor(a domain.Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithNotifier wires manager notifications.
func WithNotifier(n domain.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides "today" — used by tests.
func WithClock(now func() jalali.Date) Option {
	return func(s *Service) { s.now = now }
}

func NewService(pricing domain.PricingAPI, states domain.StateRepository, classifier *holidays.Classifier, logger *zerolog.Logger, opts ...Option) *Service {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "calendar").Logger()
	}

	s := &Service{
		pricing:    pricing,
		states:     states,
		classifier: classifier,
		logger:     base,
		now:        func() jalali.Date { return jalali.Today(nil) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fields carries the editable values of an open edit session.
type Fields struct {
	Price      int64 `json:"price"`
	ExtraPrice int64 `json:"extra_price"`
	ChildPrice int64 `json:"child_price"`
	Stock      int   `json:"stock"`
}

// MonthView is the full render state returned to the frontend after
// every operation.
type MonthView struct {
	Operator    string              `json:"operator"`
	RoomID      int64               `json:"room_id"`
	BoardTypeID int64               `json:"board_type_id"`
	Year        int                 `json:"year"`
	Month       int                 `json:"month"`
	MonthName   string              `json:"month_name"`
	Cells       []DayCell           `json:"cells"`
	Filter      models.FilterMode   `json:"filter"`
	Anchor      *jalali.Date        `json:"anchor,omitempty"`
	Range       *models.DateRange   `json:"range,omitempty"`
	Edit        *models.EditSession `json:"edit,omitempty"`
	Clipboard   *models.RateRecord  `json:"clipboard,omitempty"`
	Menu        *models.ContextMenu `json:"menu,omitempty"`
	Fetching    bool                `json:"fetching"`
	Saving      bool                `json:"saving"`
}

// Open starts (or restarts) an operator session on a room and board
// type, showing the current month. A failed initial fetch is logged and
// leaves the month empty; the tool stays usable.
func (s *Service) Open(ctx context.Context, operator string, roomID, boardTypeID int64) (*MonthView, error) {
	st := &models.CalendarState{
		Operator:    operator,
		RoomID:      roomID,
		BoardTypeID: boardTypeID,
		Month:       s.now().MonthStart(),
	}

	if err := s.refetch(ctx, st); err != nil {
		s.logger.Error().Err(err).Str("operator", operator).Msg("initial month fetch failed")
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// View rebuilds the month view without touching anything.
func (s *Service) View(ctx context.Context, operator string) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Click handles a day click. Plain clicks anchor the day and, when the
// day is editable, open a single-day edit seeded from its record.
// Shift-clicks promote the anchor to a range and never open an editor.
// Clicks on dimmed days are ignored.
func (s *Service) Click(ctx context.Context, operator string, d jalali.Date, shift bool) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	today := s.now()
	// Dimmed days swallow plain and shift clicks alike.
	if s.cellFor(st, d, today).IsDimmed {
		return s.view(st), nil
	}

	sel := Selection{Anchor: st.Anchor, Range: st.Range}

	if shift {
		sel = sel.Reduce(SelShiftClick, d)
		st.Anchor, st.Range = sel.Anchor, sel.Range
		// A selection change invalidates any open editor.
		st.Edit = nil
		st.Menu = nil
		if err := s.states.SetState(ctx, st); err != nil {
			return nil, err
		}
		return s.view(st), nil
	}

	sel = sel.Reduce(SelClick, d)
	st.Anchor, st.Range = sel.Anchor, sel.Range
	st.Menu = nil

	if d.Before(today) {
		// Past days anchor a potential shift-extension but never open
		// an editor.
		st.Edit = nil
	} else {
		st.Edit = newSingleEdit(st, d)
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// RangeEdit opens an edit session over the selected range, seeded from
// the range's first day. The range itself stays selected until save.
func (s *Service) RangeEdit(ctx context.Context, operator string) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}
	if st.Range == nil {
		return nil, ErrNoRangeSelected
	}

	st.Edit = newRangeEdit(st, *st.Range)
	st.Menu = nil

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// SetFields updates the in-progress values of the open edit session.
func (s *Service) SetFields(ctx context.Context, operator string, f Fields) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}
	if st.Edit == nil {
		return nil, ErrNoEdit
	}

	st.Edit.Price = f.Price
	st.Edit.ExtraPrice = f.ExtraPrice
	st.Edit.ChildPrice = f.ChildPrice
	st.Edit.Stock = f.Stock

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Cancel discards the open edit session and the selection, with no
// network traffic.
func (s *Service) Cancel(ctx context.Context, operator string) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}
	if st.Edit == nil {
		return nil, ErrNoEdit
	}

	st.Edit = nil
	st.ClearSelection()
	st.Menu = nil

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Save submits the open edit session: stock first, then price only when
// the entered price is positive — a zero price means "adjust stock only,
// leave pricing alone". On failure the session stays open for retry; on
// success it closes unconditionally, even if the follow-up refetch fails.
func (s *Service) Save(ctx context.Context, operator string) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}
	if st.Edit == nil {
		return nil, ErrNoEdit
	}
	if st.RoomID == 0 || st.BoardTypeID == 0 {
		return nil, ErrNotReady
	}

	kind := models.AuditKindSingle
	if st.Edit.Kind == models.EditRange {
		kind = models.AuditKindRange
	}

	span := st.Edit.Span()
	entry := s.newAuditEntry(st, kind, span, st.Edit.Price, st.Edit.ExtraPrice, st.Edit.ChildPrice, st.Edit.Stock)

	s.saving.Store(true)
	defer s.saving.Store(false)

	if err := s.pricing.UpdateStock(ctx, st.RoomID, entry.StartDate, entry.EndDate, st.Edit.Stock); err != nil {
		entry.StockError = err.Error()
		s.finishSave(ctx, st, entry, kind, false)
		return nil, err
	}

	if st.Edit.Price > 0 {
		if err := s.pricing.UpdatePrice(ctx, st.RoomID, entry.StartDate, entry.EndDate, st.BoardTypeID, st.Edit.Price, st.Edit.ExtraPrice, st.Edit.ChildPrice); err != nil {
			entry.PriceError = err.Error()
			s.finishSave(ctx, st, entry, kind, false)
			return nil, err
		}
	}

	s.finishSave(ctx, st, entry, kind, true)

	st.Edit = nil
	st.ClearSelection()
	st.Menu = nil

	// Refetch failure is reported separately, never rolled back into the
	// already-closed edit session.
	if err := s.refetch(ctx, st); err != nil {
		s.logger.Error().Err(err).Str("operator", operator).Msg("refetch after save failed")
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Copy snapshots a priced day's record onto the clipboard. Copying an
// unpriced day is disallowed.
func (s *Service) Copy(ctx context.Context, operator string, d jalali.Date) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	rec, ok := st.RecordFor(d)
	if !ok || !rec.HasPrice() {
		return nil, ErrCopyRequiresPrice
	}

	snapshot := rec
	st.Clipboard = &snapshot
	st.Menu = nil

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Paste applies the clipboard to a target day with the same stock+price
// pair as a single-day save. Backend failures are logged and audited but
// not surfaced; the clipboard survives for retry and for repeated pastes.
func (s *Service) Paste(ctx context.Context, operator string, d jalali.Date) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}
	if st.Clipboard == nil {
		return nil, ErrEmptyClipboard
	}
	if st.RoomID == 0 || st.BoardTypeID == 0 {
		return nil, ErrNotReady
	}

	clip := *st.Clipboard
	span := models.DateRange{Start: d, End: d}
	entry := s.newAuditEntry(st, models.AuditKindPaste, span, clip.Price, clip.ExtraPrice, clip.ChildPrice, clip.Stock)
	st.Menu = nil

	failed := false
	if err := s.pricing.UpdateStock(ctx, st.RoomID, entry.StartDate, entry.EndDate, clip.Stock); err != nil {
		entry.StockError = err.Error()
		failed = true
		s.logger.Error().Err(err).Str("date", entry.StartDate).Msg("paste stock update failed")
	} else if err := s.pricing.UpdatePrice(ctx, st.RoomID, entry.StartDate, entry.EndDate, st.BoardTypeID, clip.Price, clip.ExtraPrice, clip.ChildPrice); err != nil {
		entry.PriceError = err.Error()
		failed = true
		s.logger.Error().Err(err).Str("date", entry.StartDate).Msg("paste price update failed")
	}

	s.recordAudit(ctx, entry)
	if failed {
		metrics.IncSave(models.AuditKindPaste, "error")
	} else {
		metrics.IncSave(models.AuditKindPaste, "ok")
		if err := s.refetch(ctx, st); err != nil {
			s.logger.Error().Err(err).Str("operator", operator).Msg("refetch after paste failed")
		}
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// SetFilter switches the global cell filter; re-selecting the active
// mode resets to none.
func (s *Service) SetFilter(ctx context.Context, operator string, mode models.FilterMode) (*MonthView, error) {
	if !mode.Valid() {
		return nil, ErrInvalidFilter
	}

	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	if st.Filter == mode {
		st.Filter = models.FilterNone
	} else {
		st.Filter = mode
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Navigate steps the visible month. Selection, editor and menu are
// dropped: ranges never span a month navigation.
func (s *Service) Navigate(ctx context.Context, operator string, months int) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	next := st.Month.AddMonths(months).MonthStart()
	if !next.Valid() {
		return nil, ErrMonthOutOfRange
	}

	st.Month = next
	st.ClearSelection()
	st.Edit = nil
	st.Menu = nil

	if err := s.refetch(ctx, st); err != nil {
		s.logger.Error().Err(err).Str("operator", operator).Msg("month fetch failed")
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Refresh refetches the visible month. The in-flight flag gates the
// manual refresh control only; parameter-changing operations are free to
// race (last response wins, as accepted).
func (s *Service) Refresh(ctx context.Context, operator string) (*MonthView, error) {
	if s.fetching.Load() {
		return nil, ErrFetchInFlight
	}

	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	if err := s.refetch(ctx, st); err != nil {
		return nil, err
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// SelectRoom switches the room and reloads the month.
func (s *Service) SelectRoom(ctx context.Context, operator string, roomID int64) (*MonthView, error) {
	return s.switchTarget(ctx, operator, func(st *models.CalendarState) { st.RoomID = roomID })
}

// SelectBoard switches the board type and reloads the month.
func (s *Service) SelectBoard(ctx context.Context, operator string, boardTypeID int64) (*MonthView, error) {
	return s.switchTarget(ctx, operator, func(st *models.CalendarState) { st.BoardTypeID = boardTypeID })
}

func (s *Service) switchTarget(ctx context.Context, operator string, apply func(*models.CalendarState)) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	apply(st)
	st.ClearSelection()
	st.Edit = nil
	st.Menu = nil
	st.Records = nil

	if err := s.refetch(ctx, st); err != nil {
		s.logger.Error().Err(err).Str("operator", operator).Msg("month fetch failed")
	}

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// OpenMenu places the context menu on a day, snapshotting its record.
func (s *Service) OpenMenu(ctx context.Context, operator string, d jalali.Date, x, y int) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	menu := &models.ContextMenu{X: x, Y: y, Date: d}
	if rec, ok := st.RecordFor(d); ok {
		r := rec
		menu.Record = &r
	}
	st.Menu = menu

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// CloseMenu dismisses the context menu.
func (s *Service) CloseMenu(ctx context.Context, operator string) (*MonthView, error) {
	st, err := s.loadState(ctx, operator)
	if err != nil {
		return nil, err
	}

	st.Menu = nil

	if err := s.states.SetState(ctx, st); err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// BoardTypes lists the backend's meal plans for the selector.
func (s *Service) BoardTypes(ctx context.Context) ([]models.BoardType, error) {
	return s.pricing.BoardTypes(ctx)
}

// Rooms lists a hotel's room types for the selector.
func (s *Service) Rooms(ctx context.Context, hotelID int64) ([]models.Room, error) {
	return s.pricing.Rooms(ctx, hotelID)
}

// State exposes the raw operator state, used by the exporter.
func (s *Service) State(ctx context.Context, operator string) (*models.CalendarState, error) {
	return s.loadState(ctx, operator)
}

func (s *Service) loadState(ctx context.Context, operator string) (*models.CalendarState, error) {
	st, err := s.states.GetState(ctx, operator)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrNoSession
	}
	return st, nil
}

// refetch replaces the month's record set wholesale. No de-duplication
// or cancellation: overlapping fetches race and the last arrival wins.
func (s *Service) refetch(ctx context.Context, st *models.CalendarState) error {
	if st.RoomID == 0 || st.BoardTypeID == 0 {
		return ErrNotReady
	}

	s.fetching.Store(true)
	defer s.fetching.Store(false)

	start := st.Month.MonthStart().ISO()
	end := st.Month.MonthEnd().ISO()

	records, err := s.pricing.FetchCalendar(ctx, st.RoomID, st.BoardTypeID, start, end)
	if err != nil {
		metrics.IncFetch("error")
		return err
	}

	byDate := make(map[string]models.RateRecord, len(records))
	for _, rec := range records {
		byDate[rec.Date] = rec
	}
	st.Records = byDate

	metrics.IncFetch("ok")
	return nil
}

func (s *Service) cellFor(st *models.CalendarState, d jalali.Date, today jalali.Date) DayCell {
	cell := DayCell{
		Date:    d,
		IsPast:  d.Before(today),
		IsToday: d.Equal(today),
	}
	if rec, ok := st.RecordFor(d); ok {
		cell.HasPrice = rec.HasPrice()
		cell.HasStock = rec.HasStock()
		cell.IsSoldOut = rec.SoldOut()
	}
	if _, ok := s.classifier.Classify(d); ok {
		cell.IsHoliday = true
	}
	if st.Range != nil {
		cell.IsSelected = st.Range.Contains(d)
	}
	cell.IsDimmed = dimmed(cell, st.Filter)
	return cell
}

func (s *Service) newAuditEntry(st *models.CalendarState, kind string, span models.DateRange, price, extra, child int64, stock int) *models.AuditEntry {
	return &models.AuditEntry{
		ID:          uuid.NewString(),
		Operator:    st.Operator,
		RoomID:      st.RoomID,
		BoardTypeID: st.BoardTypeID,
		StartDate:   span.Start.ISO(),
		EndDate:     span.End.ISO(),
		Kind:        kind,
		Price:       price,
		ExtraPrice:  extra,
		ChildPrice:  child,
		Stock:       stock,
		CreatedAt:   time.Now(),
	}
}

func (s *Service) finishSave(ctx context.Context, st *models.CalendarState, entry *models.AuditEntry, kind string, ok bool) {
	s.recordAudit(ctx, entry)
	if ok {
		metrics.IncSave(kind, "ok")
		if kind == models.AuditKindRange && s.notifier != nil {
			s.notifier.RangeUpdated(ctx, entry)
		}
		return
	}

	metrics.IncSave(kind, "error")
	if s.notifier != nil {
		s.notifier.SaveFailed(ctx, entry)
	}
	// Keep the session open for retry; persist whatever we have so the
	// operator's entered values survive.
	if err := s.states.SetState(ctx, st); err != nil {
		s.logger.Error().Err(err).Msg("persist state after failed save")
	}
}

func (s *Service) recordAudit(ctx context.Context, entry *models.AuditEntry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("audit record failed")
	}
}

func (s *Service) view(st *models.CalendarState) *MonthView {
	return &MonthView{
		Operator:    st.Operator,
		RoomID:      st.RoomID,
		BoardTypeID: st.BoardTypeID,
		Year:        st.Month.Year,
		Month:       st.Month.Month,
		MonthName:   st.Month.MonthName(),
		Cells:       BuildDayCells(st, s.classifier, s.now()),
		Filter:      st.Filter,
		Anchor:      st.Anchor,
		Range:       st.Range,
		Edit:        st.Edit,
		Clipboard:   st.Clipboard,
		Menu:        st.Menu,
		Fetching:    s.fetching.Load(),
		Saving:      s.saving.Load(),
	}
}
