package virustotal

// EngineResult is one antivirus engine's verdict inside a report.
type EngineResult struct {
	Detected bool   `json:"detected"`
	Version  string `json:"version,omitempty"`
	Result   string `json:"result,omitempty"`
	Update   string `json:"update,omitempty"`
}

// Report is a file or URL report. ResponseCode is 1 when the resource is
// known, 0 when it is not and -2 while it is still queued.
type Report struct {
	ResponseCode int                     `json:"response_code"`
	VerboseMsg   string                  `json:"verbose_msg,omitempty"`
	Resource     string                  `json:"resource,omitempty"`
	ScanID       string                  `json:"scan_id,omitempty"`
	SHA256       string                  `json:"sha256,omitempty"`
	Positives    int                     `json:"positives"`
	Total        int                     `json:"total"`
	ScanDate     string                  `json:"scan_date,omitempty"`
	Permalink    string                  `json:"permalink,omitempty"`
	Scans        map[string]EngineResult `json:"scans,omitempty"`
}

// Found reports whether the service has a finished report for the resource.
func (r *Report) Found() bool {
	return r != nil && r.ResponseCode == 1
}

// ScanResponse acknowledges a submitted file or URL.
type ScanResponse struct {
	ResponseCode int    `json:"response_code"`
	VerboseMsg   string `json:"verbose_msg,omitempty"`
	Resource     string `json:"resource,omitempty"`
	ScanID       string `json:"scan_id,omitempty"`
	Permalink    string `json:"permalink,omitempty"`
}
