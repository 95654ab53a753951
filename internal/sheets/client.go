package sheets

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
}

func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID string) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

// URL is the browser link of the spreadsheet.
func (c *Client) URL() string {
	return "https://docs.google.com/spreadsheets/d/" + c.spreadsheetID
}

func (c *Client) clear(ctx context.Context, sheet string) error {
	_, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, sheet+"!A:ZZ", &sheetsv4.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

func (c *Client) update(ctx context.Context, sheet string, values [][]interface{}) error {
	vr := &sheetsv4.ValueRange{Values: values}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
