package server

import (
	"time"

	"github.com/raysh454/shieldsuite/internal/riskscore"
)

// AnalyzeAPKRequest describes one APK. The apkName/apkSize/apkPath keys are
// accepted as aliases of name/sizeBytes/path.
type AnalyzeAPKRequest struct {
	APKName    string                `json:"apkName" example:"TikTok_Mod.apk"`
	Name       string                `json:"name"`
	APKSize    *int64                `json:"apkSize" example:"28567890"`
	SizeBytes  *int64                `json:"sizeBytes"`
	APKPath    string                `json:"apkPath" example:"/storage/emulated/0/Download/TikTok_Mod.apk"`
	Path       string                `json:"path"`
	Hash       string                `json:"hash,omitempty" validate:"omitempty,max=128"`
	Detections *riskscore.Detections `json:"detections,omitempty"`
}

func (r AnalyzeAPKRequest) Descriptor() riskscore.Descriptor {
	d := riskscore.Descriptor{
		Name:       firstNonEmpty(r.APKName, r.Name),
		Path:       firstNonEmpty(r.APKPath, r.Path),
		Hash:       r.Hash,
		Detections: r.Detections,
	}
	switch {
	case r.APKSize != nil:
		d.SizeBytes = *r.APKSize
	case r.SizeBytes != nil:
		d.SizeBytes = *r.SizeBytes
	default:
		d.SizeUnknown = true
	}
	return d
}

// AnalyzeAPKResponse wraps a single assessment.
type AnalyzeAPKResponse struct {
	Success  bool                  `json:"success" example:"true"`
	APKName  string                `json:"apkName" example:"TikTok_Mod.apk"`
	Analysis *riskscore.Assessment `json:"analysis"`
}

// APKItem is one entry of a bulk request, echoed back with its analysis.
type APKItem struct {
	Name       string                `json:"name" example:"Banking_Hack.apk"`
	Size       *int64                `json:"size,omitempty" example:"15234567"`
	Path       string                `json:"path,omitempty"`
	Hash       string                `json:"hash,omitempty" validate:"omitempty,max=128"`
	Detections *riskscore.Detections `json:"detections,omitempty"`
}

func (i APKItem) Descriptor() riskscore.Descriptor {
	d := riskscore.Descriptor{Name: i.Name, Path: i.Path, Hash: i.Hash, Detections: i.Detections}
	if i.Size != nil {
		d.SizeBytes = *i.Size
	} else {
		d.SizeUnknown = true
	}
	return d
}

// BulkAnalyzeRequest carries a batch under "apks"; "artifacts" is accepted
// as an alias.
type BulkAnalyzeRequest struct {
	APKs      []APKItem `json:"apks" validate:"max=1000,dive"`
	Artifacts []APKItem `json:"artifacts" validate:"max=1000,dive"`
}

func (r BulkAnalyzeRequest) Items() []APKItem {
	if len(r.APKs) > 0 {
		return r.APKs
	}
	return r.Artifacts
}

type BulkItemResult struct {
	APKItem
	Analysis *riskscore.Assessment `json:"analysis"`
}

type BulkAnalyzeResponse struct {
	Success  bool              `json:"success" example:"true"`
	Summary  riskscore.Summary `json:"summary"`
	Results  []BulkItemResult  `json:"results"`
	ScanTime time.Time         `json:"scanTime"`
}

type ScanDeviceRequest struct {
	DeviceID string `json:"deviceId" validate:"omitempty,max=128" example:"pixel-7"`
}

type VerifyAppRequest struct {
	PackageName string `json:"packageName" validate:"omitempty,max=256" example:"com.whatsapp"`
	Hash        string `json:"hash" validate:"required,max=128"`
}

type ScanHashRequest struct {
	Hash string `json:"hash" validate:"required,max=128"`
	Type string `json:"type,omitempty"`
}

type CheckMalwareRequest struct {
	Hash string `json:"hash" validate:"required,max=128"`
}

type AnalyzePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}

type ReportMalwareRequest struct {
	Hash        string `json:"hash" validate:"required,max=128"`
	PackageName string `json:"packageName" validate:"omitempty,max=256"`
	Reason      string `json:"reason" validate:"omitempty,max=1024"`
}

type CheckURLRequest struct {
	URL string `json:"url" validate:"required,url" example:"https://example.com"`
}

type CreateAlertRequest struct {
	Type      string    `json:"type" validate:"required" example:"malware"`
	Severity  string    `json:"severity" validate:"required" example:"critical"`
	Message   string    `json:"message" validate:"required"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

type UpdateAlertRequest struct {
	Status string `json:"status" validate:"required" example:"resolved"`
}

type DomainRequest struct {
	Domain string `json:"domain" validate:"required,max=253" example:"ads.example.com"`
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type PINRequest struct {
	PIN string `json:"pin"`
}

type ConfirmationRequest struct {
	ConfirmationCode string `json:"confirmationCode"`
}

type InstallationRequest struct {
	AppName   string    `json:"appName" example:"Signal"`
	Version   string    `json:"version" example:"7.2.1"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// StatusResponse acknowledges a state change.
type StatusResponse struct {
	Status string `json:"status" example:"remote wipe initiated"`
}

// MessageResponse acknowledges a device command.
type MessageResponse struct {
	Message string `json:"message" example:"Device locked successfully"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
