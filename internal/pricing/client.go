package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ratedesk/internal/config"
	"ratedesk/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client talks to the pricing backend. Reads are retried with backoff on
// transport errors and 5xx; writes are issued exactly once — the backend
// upserts are idempotent, but retrying a half-failed save is the
// operator's decision, not the client's.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "pricing-client").Logger()
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retries:    cfg.FetchRetries,
		retryDelay: 500 * time.Millisecond,
		logger:     base,
	}
}

// rateRow is the wire shape of one calendar day. Prices arrive as null
// when no rate is configured; we collapse null to zero because every
// client-side predicate treats the two identically.
type rateRow struct {
	Date       string `json:"date"`
	Price      *int64 `json:"price"`
	ExtraPrice *int64 `json:"extra_price"`
	ChildPrice *int64 `json:"child_price"`
	Stock      int    `json:"stock"`
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// FetchCalendar loads the rate/stock records for an inclusive Gregorian
// date range of one room and board type.
func (c *Client) FetchCalendar(ctx context.Context, roomID, boardTypeID int64, startDate, endDate string) ([]models.RateRecord, error) {
	q := url.Values{}
	q.Set("room", strconv.FormatInt(roomID, 10))
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	q.Set("board_type_id", strconv.FormatInt(boardTypeID, 10))

	var rows []rateRow
	if err := c.getJSON(ctx, "/pricing/api/inventory/calendar/?"+q.Encode(), &rows); err != nil {
		return nil, err
	}

	records := make([]models.RateRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.RateRecord{
			Date:       row.Date,
			Price:      deref(row.Price),
			ExtraPrice: deref(row.ExtraPrice),
			ChildPrice: deref(row.ChildPrice),
			Stock:      row.Stock,
		})
	}
	return records, nil
}

// UpdateStock upserts stock for an inclusive date range (a single day is
// a range of length one).
func (c *Client) UpdateStock(ctx context.Context, roomID int64, startDate, endDate string, quantity int) error {
	body := map[string]any{
		"room":       roomID,
		"start_date": startDate,
		"end_date":   endDate,
		"quantity":   quantity,
	}
	return c.postJSON(ctx, "/pricing/api/inventory/update-stock/", body)
}

// UpdatePrice upserts the three price fields for an inclusive date range.
func (c *Client) UpdatePrice(ctx context.Context, roomID int64, startDate, endDate string, boardTypeID, price, extraPrice, childPrice int64) error {
	body := map[string]any{
		"room":        roomID,
		"start_date":  startDate,
		"end_date":    endDate,
		"board_type":  boardTypeID,
		"price":       price,
		"extra_price": extraPrice,
		"child_price": childPrice,
	}
	return c.postJSON(ctx, "/pricing/api/inventory/update-price/", body)
}

// BoardTypes lists the meal-plan options.
func (c *Client) BoardTypes(ctx context.Context) ([]models.BoardType, error) {
	var boards []models.BoardType
	if err := c.getJSON(ctx, "/api/hotels/board-types/", &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// Rooms lists the room types of a hotel.
func (c *Client) Rooms(ctx context.Context, hotelID int64) ([]models.Room, error) {
	var rooms []models.Room
	path := fmt.Sprintf("/api/hotels/%d/rooms/", hotelID)
	if err := c.getJSON(ctx, path, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		retryable, err := c.doJSON(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		c.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("retrying fetch")
	}
	return lastErr
}

func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	_, err := c.doJSON(ctx, http.MethodPost, path, body, nil)
	return err
}

// doJSON performs one HTTP round trip. The bool return marks errors worth
// retrying (transport failures and 5xx responses).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%s %s: backend returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
		return resp.StatusCode >= 500, err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return false, nil
}
