package virustotal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/riskscore"
)

// FileReport fetches the report for a file hash or scan id.
func (c *Client) FileReport(ctx context.Context, resource string) (*Report, error) {
	var rep Report
	err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   "/file/report",
		query:  url.Values{"apikey": {c.cfg.APIKey}, "resource": {resource}},
	}, &rep)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// URLReport fetches the report for a URL or URL scan id.
func (c *Client) URLReport(ctx context.Context, resource string) (*Report, error) {
	var rep Report
	err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   "/url/report",
		query:  url.Values{"apikey": {c.cfg.APIKey}, "resource": {resource}},
	}, &rep)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ScanURL submits a URL for analysis.
func (c *Client) ScanURL(ctx context.Context, target string) (*ScanResponse, error) {
	var out ScanResponse
	if err := c.do(ctx, c.formRequest("/url/scan", url.Values{"url": {target}}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScanFile uploads file content for analysis.
func (c *Client) ScanFile(ctx context.Context, filename string, content []byte) (*ScanResponse, error) {
	if !c.Enabled() {
		return nil, ErrNoAPIKey
	}
	req, err := c.multipartRequest("/file/scan", filename, content)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	var out ScanResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lookup resolves detection counts for an identifier. It lets the client act
// as the risk scorer's detection source.
func (c *Client) Lookup(ctx context.Context, identifier string) (riskscore.Detections, error) {
	rep, err := c.FileReport(ctx, identifier)
	if err != nil {
		return riskscore.Detections{}, err
	}
	if !rep.Found() {
		c.logger.Debug("no report for identifier",
			logging.Field{Key: "identifier", Value: identifier},
			logging.Field{Key: "response_code", Value: rep.ResponseCode})
		return riskscore.Detections{}, ErrNotFound
	}
	return riskscore.Detections{Positives: rep.Positives, Total: rep.Total}, nil
}
