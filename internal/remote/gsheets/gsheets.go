// Package gsheets implements remote.Backend on top of the Google Sheets v4
// API. Each sheet of the spreadsheet holds one entity.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// newService is a seam for tests.
var newService = sheets.NewService

type Backend struct {
	svc           *sheets.Service
	spreadsheetID string
}

var _ remote.Backend = (*Backend)(nil)

// New connects to the spreadsheet. With credentialsFile empty the
// application default credentials are used; extra opts are appended last.
func New(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*Backend, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, common.NewConfigError(common.ConfigMissingDataset, "spreadsheet id is not configured", nil)
	}
	all := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, opts...)

	svc, err := newService(ctx, all...)
	if err != nil {
		return nil, common.NewConfigError(common.ConfigInvalidCredentials, "cannot build sheets client", err)
	}
	return &Backend{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (b *Backend) ListSheets(ctx context.Context) ([]string, error) {
	resp, err := b.svc.Spreadsheets.Get(b.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			names = append(names, s.Properties.Title)
		}
	}
	return names, nil
}

func (b *Backend) CreateSheet(ctx context.Context, name string, header []string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
		}},
	}
	if _, err := b.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return mapError(err)
	}
	if len(header) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(header)}}
	_, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, quote(name)+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return mapError(err)
}

func (b *Backend) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	resp, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, quote(name)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		line := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				line[j] = fmt.Sprint(v)
			}
		}
		out[i] = line
	}
	return out, nil
}

func (b *Backend) AppendRows(ctx context.Context, name string, rows [][]string) error {
	vr := &sheets.ValueRange{Values: make([][]interface{}, len(rows))}
	for i, r := range rows {
		vr.Values[i] = toInterfaces(r)
	}
	_, err := b.svc.Spreadsheets.Values.Append(b.spreadsheetID, quote(name)+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return mapError(err)
}

func (b *Backend) UpdateCells(ctx context.Context, name string, cells []remote.Cell) error {
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	for _, c := range cells {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  quote(name) + "!" + A1(c.Row, c.Col),
			Values: [][]interface{}{{c.Value}},
		})
	}
	_, err := b.svc.Spreadsheets.Values.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do()
	return mapError(err)
}

// A1 converts zero-based coordinates to A1 notation.
func A1(row, col int) string {
	return ColumnLetters(col) + strconv.Itoa(row+1)
}

// ColumnLetters returns the column label for a zero-based index: 0 is A,
// 25 is Z, 26 is AA.
func ColumnLetters(col int) string {
	var b []byte
	for col >= 0 {
		b = append([]byte{byte('A' + col%26)}, b...)
		col = col/26 - 1
	}
	return string(b)
}

func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// mapError translates Google API failures into the common taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	reasons := make([]string, 0, len(gerr.Errors))
	for _, e := range gerr.Errors {
		reasons = append(reasons, e.Reason)
	}
	has := func(want ...string) bool {
		for _, r := range reasons {
			for _, w := range want {
				if strings.EqualFold(r, w) {
					return true
				}
			}
		}
		return false
	}
	msg := strings.ToLower(gerr.Message)

	switch {
	case gerr.Code == http.StatusTooManyRequests,
		has("rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded"):
		return fmt.Errorf("%w: %w", common.ErrRateLimited, err)
	case gerr.Code >= 500:
		return fmt.Errorf("%w: %w", common.ErrRemoteBusy, err)
	case gerr.Code == http.StatusUnauthorized:
		return common.NewConfigError(common.ConfigInvalidCredentials, "", err)
	case gerr.Code == http.StatusForbidden:
		if has("accessNotConfigured", "SERVICE_DISABLED") ||
			strings.Contains(msg, "has not been used") || strings.Contains(msg, "is disabled") {
			return common.NewConfigError(common.ConfigAPIDisabled, "enable the Google Sheets API for the project", err)
		}
		return common.NewConfigError(common.ConfigPermissionDenied, "share the spreadsheet with the service account", err)
	case gerr.Code == http.StatusNotFound:
		return common.NewConfigError(common.ConfigNotFound, "", err)
	case gerr.Code == http.StatusBadRequest && strings.Contains(msg, "unable to parse range"):
		return common.NewConfigError(common.ConfigNotFound, "sheet does not exist", err)
	}
	return err
}
