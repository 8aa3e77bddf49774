package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
	ports "splitledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.SummaryExporter = (*Exporter)(nil)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Exporter writes debt summaries to a spreadsheet, one tab per group.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time

	mu    sync.Mutex
	known map[string]bool
}

// NewExporter creates a Sheets-backed exporter authenticated with a
// service account.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Debts"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
		known:         make(map[string]bool),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		credentialsJSON, err = os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets")
	return service, nil
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ExportSummary replaces the contents of the group's tab with the summary.
func (e *Exporter) ExportSummary(ctx context.Context, groupID core.GroupID, summary ledger.DebtSummary) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	title := sheetTitle(e.sheetName, groupID)
	if err := e.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:E", title)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := summaryRows(groupID, summary, e.now())
	vr := &gsheet.ValueRange{Values: rows}
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("'%s'!A1", title), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write summary to %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Exported debt summary",
		"component", "sheets",
		"group_id", groupID,
		"sheet", title,
		"rows", len(rows))
	return nil
}

// ensureSheet creates the tab if the spreadsheet does not have it yet.
func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.known[title] {
		return nil
	}

	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			e.known[sh.Properties.Title] = true
		}
	}
	if e.known[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	e.known[title] = true

	slog.InfoContext(ctx, "Created summary sheet", "component", "sheets", "sheet", title)
	return nil
}
