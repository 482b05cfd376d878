package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ratedesk/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService mirrors the audit trail into the rate-changes
// spreadsheet managers watch. Append-only; the sqlite audit database
// stays the source of truth.
type SheetsService struct {
	service    *sheets.Service
	sheetID    string
	sheetRange string
}

func NewSheetsService(credentialsFile, sheetID, sheetRange string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	if sheetRange == "" {
		sheetRange = "RateChanges!A:A"
	}

	return &SheetsService{
		service:    srv,
		sheetID:    sheetID,
		sheetRange: sheetRange,
	}, nil
}

// TestConnection reads one cell to verify the service account can see
// the spreadsheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.sheetID, "RateChanges!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// GetServiceAccountEmail extracts the account email from the credentials
// file, for sharing the spreadsheet with it.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendRateChanges appends one row per audit entry.
func (s *SheetsService) AppendRateChanges(ctx context.Context, entries []models.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		values = append(values, []interface{}{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Operator,
			e.RoomID,
			e.BoardTypeID,
			e.StartDate,
			e.EndDate,
			e.Kind,
			e.Price,
			e.ExtraPrice,
			e.ChildPrice,
			e.Stock,
		})
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err := s.service.Spreadsheets.Values.Append(s.sheetID, s.sheetRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append rate changes: %w", err)
	}
	return nil
}
