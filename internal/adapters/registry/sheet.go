package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/teamsplit/pkg/logger"
)

const (
	// DefaultSheetsBaseURL is the Google Sheets API endpoint.
	DefaultSheetsBaseURL = "https://sheets.googleapis.com"
	// DefaultSheetRange is the sign-up column of the session sheet.
	DefaultSheetRange = "B13:B22"

	maxErrorBody = 512
)

// SheetOption configures a SheetSource.
type SheetOption func(*SheetSource)

// WithBaseURL points the source at another Sheets API host.
func WithBaseURL(base string) SheetOption {
	return func(s *SheetSource) {
		if base != "" {
			s.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithSheetLogger sets the logger.
func WithSheetLogger(l logger.Logger) SheetOption {
	return func(s *SheetSource) {
		if l != nil {
			s.log = l
		}
	}
}

// SheetSource reads active names from a range of a Google spreadsheet.
type SheetSource struct {
	client        *http.Client
	spreadsheetID string
	cellRange     string
	baseURL       string
	log           logger.Logger
}

// NewSheetSource returns a Source reading cellRange of the spreadsheet at
// sheetURL. client must attach credentials, see TokenStore.Client.
func NewSheetSource(client *http.Client, sheetURL, cellRange string, opts ...SheetOption) (*SheetSource, error) {
	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return nil, err
	}
	if cellRange == "" {
		cellRange = DefaultSheetRange
	}
	if client == nil {
		client = http.DefaultClient
	}
	s := &SheetSource{
		client:        client,
		spreadsheetID: id,
		cellRange:     cellRange,
		baseURL:       DefaultSheetsBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("sheet")
	}
	return s, nil
}

// SpreadsheetID extracts the document id from a spreadsheet URL of the form
// https://docs.google.com/spreadsheets/d/<id>/edit.
func SpreadsheetID(sheetURL string) (string, error) {
	u, err := url.Parse(sheetURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSheetURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "d" && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: no document id in %q", ErrInvalidSheetURL, sheetURL)
}

type valueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

func (s *SheetSource) ActiveNames(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		s.baseURL, url.PathEscape(s.spreadsheetID), url.PathEscape(s.cellRange))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSheetRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSheetRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSheetRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrSheetRequest, err)
	}

	var cells []string
	for _, row := range vr.Values {
		cells = append(cells, row...)
	}
	names := Normalize(cells)
	s.log.Debug(ctx, "sheet read",
		logger.String("range", vr.Range),
		logger.Int("names", len(names)))
	return names, nil
}
