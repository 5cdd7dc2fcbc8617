package export

import (
	"context"
	"fmt"
	"os"

	"github.com/2beens/dailyfit/internal/workout"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var _ workout.SessionSink = (*SheetsSink)(nil)

// SheetsSink appends every finished session to a Google spreadsheet: the summary to
// the Sessions sheet and each set to the Sets sheet.
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsSink authenticates with a service account credentials file.
func NewSheetsSink(ctx context.Context, credentialsPath, spreadsheetID string) (*SheetsSink, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}

	client := config.Client(ctx)
	client.Transport = otelhttp.NewTransport(client.Transport)

	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewSheetsSinkWithService(service, spreadsheetID), nil
}

func NewSheetsSinkWithService(service *sheets.Service, spreadsheetID string) *SheetsSink {
	return &SheetsSink{
		service:       service,
		spreadsheetID: spreadsheetID,
	}
}

func (s *SheetsSink) SaveSession(ctx context.Context, session workout.Session) error {
	if err := s.append(ctx, SheetSessions, [][]any{SessionRow(session)}); err != nil {
		return fmt.Errorf("append session %s to sheets: %w", session.ID, err)
	}

	if rows := SetRows(session); len(rows) > 0 {
		if err := s.append(ctx, SheetSets, rows); err != nil {
			return fmt.Errorf("append sets of session %s to sheets: %w", session.ID, err)
		}
	}

	log.Debugf("sheets: session %s appended to spreadsheet %s", session.ID, s.spreadsheetID)
	return nil
}

func (s *SheetsSink) append(ctx context.Context, sheet string, rows [][]any) error {
	valueRange := &sheets.ValueRange{
		Values: rows,
	}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, sheet+"!A1", valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
