package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/raysh454/shieldsuite/internal/alerts"
	"github.com/raysh454/shieldsuite/internal/apps"
	"github.com/raysh454/shieldsuite/internal/device"
	"github.com/raysh454/shieldsuite/internal/devicescan"
	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/malwaredb"
	"github.com/raysh454/shieldsuite/internal/metrics"
	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/virustotal"
	"github.com/raysh454/shieldsuite/internal/vpn"
)

// ErrClosed is returned when starting work on a closed orchestrator.
var ErrClosed = errors.New("orchestrator is closed")

// Deps are the collaborators an Orchestrator is built from. Only DB is
// required.
type Deps struct {
	DB      *sql.DB
	Logger  logging.Logger
	Metrics *metrics.Metrics

	// DetectionSource replaces the VirusTotal client as the scorer's
	// external source.
	DetectionSource riskscore.DetectionSource

	// HTTPClient is used for VirusTotal requests.
	HTTPClient *http.Client

	VPNBackend vpn.Backend

	// Seed makes the simulated device readings deterministic. Zero seeds randomly.
	Seed uint64
}

// Orchestrator ties the suite's components together behind the operations
// the HTTP API exposes.
type Orchestrator struct {
	cfg     *Config
	logger  logging.Logger
	metrics *metrics.Metrics

	scorer   *riskscore.Scorer
	vt       *virustotal.Client
	malware  *malwaredb.Store
	feed     *malwaredb.FeedWatcher
	hub      *alerts.Hub
	alerts   *alerts.Store
	vpn      *vpn.Service
	control  *device.Controller
	geoip    *device.GeoIP
	location *device.LocationTracker
	monitor  *device.Monitor
	apps     *apps.Registry
	scanner  *devicescan.Scanner
	history  *ScanHistory

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
	jobsWG     sync.WaitGroup
	closed     bool

	closeOnce sync.Once
}

// NewOrchestrator migrates every store on deps.DB and wires the components.
// ctx bounds the malware feed watcher, when one is configured.
func NewOrchestrator(ctx context.Context, cfg *Config, deps Deps) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("db is nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	o := &Orchestrator{
		cfg:        cfg,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		metrics:    deps.Metrics,
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
	}

	var err error
	if o.malware, err = malwaredb.NewStore(ctx, deps.DB, logger); err != nil {
		return nil, fmt.Errorf("creating malware store: %w", err)
	}
	o.hub = alerts.NewHub(cfg.Alerts.SubscriberBuffer, logger)
	if o.alerts, err = alerts.NewStore(ctx, deps.DB, o.hub, logger); err != nil {
		return nil, fmt.Errorf("creating alert store: %w", err)
	}
	if o.apps, err = apps.NewRegistry(ctx, deps.DB, logger); err != nil {
		return nil, fmt.Errorf("creating app registry: %w", err)
	}
	if o.history, err = NewScanHistory(ctx, deps.DB); err != nil {
		return nil, fmt.Errorf("creating scan history: %w", err)
	}

	o.vt = virustotal.NewClient(cfg.VirusTotal, logger, deps.HTTPClient)
	source := deps.DetectionSource
	if source == nil && o.vt.Enabled() {
		source = o.vt
	}
	source = metrics.InstrumentSource(source, o.metrics, virustotal.ErrNotFound)
	if o.scorer, err = riskscore.NewScorer(&cfg.Scoring, source, logger); err != nil {
		return nil, err
	}

	vpnCfg := cfg.VPN
	vpnCfg.Development = cfg.IsDevelopment()
	o.vpn = vpn.NewService(vpnCfg, deps.VPNBackend, logger)

	o.control = device.NewController(cfg.Device.RemoteWipeCode, logger)

	var locator device.Locator
	if cfg.GeoIP.Database != "" {
		g, err := device.OpenGeoIP(cfg.GeoIP.Database)
		if err != nil {
			o.logger.Warn("geoip database unavailable, simulating locations",
				logging.Field{Key: "path", Value: cfg.GeoIP.Database},
				logging.Field{Key: "error", Value: err.Error()})
		} else {
			o.geoip = g
			locator = g
		}
	}

	newRand := randSource(deps.Seed)
	o.location = device.NewLocationTracker(locator, newRand())
	o.monitor = device.NewMonitor(newRand())
	o.scanner = devicescan.NewScanner(newRand())

	if cfg.Malware.FeedPath != "" {
		feedPath, err := ExpandPath(cfg.Malware.FeedPath)
		if err != nil {
			return nil, fmt.Errorf("expanding feed path: %w", err)
		}
		if o.feed, err = malwaredb.NewFeedWatcher(feedPath, o.malware, logger); err != nil {
			return nil, err
		}
		if err := o.feed.Start(ctx); err != nil {
			o.feed.Stop()
			return nil, fmt.Errorf("starting malware feed: %w", err)
		}
	}

	o.metrics.Gauge("alert_subscribers", "Connected live alert subscribers.",
		func() float64 { return float64(o.hub.Subscribers()) })
	o.metrics.Gauge("malware_hashes", "Known malicious identifiers.",
		func() float64 { return float64(o.malware.Count()) })

	o.logger.Info("orchestrator ready",
		logging.Field{Key: "env", Value: cfg.Server.Env},
		logging.Field{Key: "virustotal", Value: o.vt.Enabled()},
		logging.Field{Key: "geoip", Value: o.geoip != nil},
		logging.Field{Key: "malware_feed", Value: o.feed != nil})
	return o, nil
}

// randSource returns a constructor of independent generators. Each
// component gets its own since rand.Rand is not safe for concurrent use.
func randSource(seed uint64) func() *rand.Rand {
	var n uint64
	return func() *rand.Rand {
		n++
		if seed == 0 {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		return rand.New(rand.NewPCG(seed, n))
	}
}

// Close cancels running jobs, waits for them and releases resources. The
// database stays open; it belongs to the caller.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.jobsMu.Lock()
		o.closed = true
		for _, cancel := range o.jobCancels {
			cancel()
		}
		o.jobsMu.Unlock()
		o.jobsWG.Wait()

		if o.feed != nil {
			o.feed.Stop()
		}
		o.hub.Close()
		if o.geoip != nil {
			_ = o.geoip.Close()
		}
	})
}

func (o *Orchestrator) Config() *Config { return o.cfg }
func (o *Orchestrator) Scorer() *riskscore.Scorer { return o.scorer }
func (o *Orchestrator) Alerts() *alerts.Store { return o.alerts }
func (o *Orchestrator) Hub() *alerts.Hub { return o.hub }
func (o *Orchestrator) VPN() *vpn.Service { return o.vpn }
func (o *Orchestrator) Device() *device.Controller { return o.control }
func (o *Orchestrator) Location() *device.LocationTracker { return o.location }
func (o *Orchestrator) Monitor() *device.Monitor { return o.monitor }
func (o *Orchestrator) Apps() *apps.Registry { return o.apps }
func (o *Orchestrator) Malware() *malwaredb.Store { return o.malware }
func (o *Orchestrator) History() *ScanHistory { return o.history }
func (o *Orchestrator) VirusTotal() *virustotal.Client { return o.vt }
func (o *Orchestrator) ScanDevice(id string) devicescan.Result { return o.scanner.Scan(id) }

// --- APK analysis ---

// AnalyzeAPK scores one descriptor, records it and raises an alert when the
// result is CRITICAL.
func (o *Orchestrator) AnalyzeAPK(ctx context.Context, d riskscore.Descriptor) (*riskscore.Assessment, error) {
	a, err := o.scorer.Assess(ctx, d)
	if err != nil {
		return nil, err
	}
	o.afterAssessment(ctx, KindAPK, d, a)
	return a, nil
}

// BulkAnalyze scores a batch synchronously.
func (o *Orchestrator) BulkAnalyze(ctx context.Context, ds []riskscore.Descriptor) (*riskscore.BulkResult, error) {
	return o.bulkAnalyze(ctx, ds, nil)
}

func (o *Orchestrator) bulkAnalyze(ctx context.Context, ds []riskscore.Descriptor, progress riskscore.ProgressFunc) (*riskscore.BulkResult, error) {
	res, err := o.scorer.AssessAllProgress(ctx, ds, progress)
	if err != nil {
		return nil, err
	}
	for i, a := range res.Results {
		o.afterAssessment(ctx, KindBulk, ds[i], a)
	}
	return res, nil
}

func (o *Orchestrator) afterAssessment(ctx context.Context, kind string, d riskscore.Descriptor, a *riskscore.Assessment) {
	o.metrics.ObserveAssessment(a)

	if _, err := o.history.Record(ctx, recordAssessment(kind, d.Name, a)); err != nil {
		o.logger.Warn("recording scan history",
			logging.Field{Key: "name", Value: d.Name},
			logging.Field{Key: "error", Value: err.Error()})
	}

	if a.RiskLevel != riskscore.LevelCritical {
		return
	}
	_, err := o.alerts.Create(ctx, alerts.NewAlert{
		Type:     AlertTypeMalware,
		Severity: AlertSeverityCritical,
		Message:  fmt.Sprintf("Critical risk APK detected: %s (score %d)", d.Name, a.RiskScore),
		Source:   alertSourceScanner,
	})
	if err != nil {
		o.logger.Warn("raising malware alert",
			logging.Field{Key: "name", Value: d.Name},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// Alert fields used for scanner-raised alerts.
const (
	AlertTypeMalware      = "malware"
	AlertSeverityCritical = "critical"
	alertSourceScanner    = "apk-scanner"
)

// --- Protection ---

type Verification struct {
	IsVerified  bool      `json:"isVerified"`
	PackageName string    `json:"packageName"`
	ScanDate    time.Time `json:"scanDate"`
	Threats     []string  `json:"threats"`
}

// VerifyApp checks an app's hash against the known-malware set.
func (o *Orchestrator) VerifyApp(packageName, hash string) Verification {
	known := o.malware.Contains(hash)
	v := Verification{
		IsVerified:  !known,
		PackageName: packageName,
		ScanDate:    time.Now().UTC(),
		Threats:     []string{},
	}
	if known {
		v.Threats = append(v.Threats, "Known malware")
	}
	return v
}

type MalwareCheck struct {
	IsMalware bool      `json:"isMalware"`
	Hash      string    `json:"hash"`
	CheckDate time.Time `json:"checkDate"`
	Source    string    `json:"source"`
}

func (o *Orchestrator) CheckMalware(hash string) MalwareCheck {
	return MalwareCheck{
		IsMalware: o.malware.Contains(hash),
		Hash:      hash,
		CheckDate: time.Now().UTC(),
		Source:    "Internal database",
	}
}

// ReportMalware adds a hash to the known-malware set. It reports whether the
// hash was new.
func (o *Orchestrator) ReportMalware(ctx context.Context, hash, packageName, reason string) (bool, error) {
	return o.malware.Report(ctx, malwaredb.Entry{
		Hash:        hash,
		PackageName: packageName,
		Reason:      reason,
		Source:      malwaredb.SourceReport,
	})
}

type ScanDetails struct {
	Positives int    `json:"positives"`
	Total     int    `json:"total"`
	ScanDate  string `json:"scanDate,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

type HashScan struct {
	Malicious   bool        `json:"malicious"`
	Threats     []string    `json:"threats"`
	ScanDetails ScanDetails `json:"scanDetails"`
}

// ScanHash fetches the VirusTotal report for a file hash.
func (o *Orchestrator) ScanHash(ctx context.Context, hash string) (*HashScan, error) {
	rep, err := o.vt.FileReport(ctx, hash)
	if err != nil {
		return nil, err
	}
	out := &HashScan{
		Malicious: rep.Positives > 0,
		Threats:   []string{},
		ScanDetails: ScanDetails{
			Positives: rep.Positives,
			Total:     rep.Total,
			ScanDate:  rep.ScanDate,
			Permalink: rep.Permalink,
		},
	}
	if out.Malicious {
		out.Threats = append(out.Threats, fmt.Sprintf("%d/%d engines detected threats", rep.Positives, rep.Total))
	}
	o.recordReport(ctx, KindHash, hash, out.Threats)
	return out, nil
}

// RemoteScan is the outcome of submitting a file or URL to VirusTotal and
// fetching its report.
type RemoteScan struct {
	ScanID    string                             `json:"scanId"`
	Results   map[string]virustotal.EngineResult `json:"results"`
	Positives int                                `json:"positives"`
	Total     int                                `json:"total"`
}

// ScanFile uploads content to VirusTotal and returns its current report.
func (o *Orchestrator) ScanFile(ctx context.Context, name string, content []byte) (*RemoteScan, error) {
	sub, err := o.vt.ScanFile(ctx, name, content)
	if err != nil {
		return nil, err
	}
	rep, err := o.vt.FileReport(ctx, sub.Resource)
	if err != nil {
		return nil, err
	}
	o.recordReport(ctx, KindFile, name, engineThreats(rep))
	return &RemoteScan{ScanID: sub.Resource, Results: rep.Scans, Positives: rep.Positives, Total: rep.Total}, nil
}

// CheckURL submits a URL to VirusTotal and returns its current report.
func (o *Orchestrator) CheckURL(ctx context.Context, target string) (*RemoteScan, error) {
	sub, err := o.vt.ScanURL(ctx, target)
	if err != nil {
		return nil, err
	}
	rep, err := o.vt.URLReport(ctx, sub.ScanID)
	if err != nil {
		return nil, err
	}
	o.recordReport(ctx, KindURL, target, engineThreats(rep))
	return &RemoteScan{ScanID: sub.ScanID, Results: rep.Scans, Positives: rep.Positives, Total: rep.Total}, nil
}

func engineThreats(rep *virustotal.Report) []string {
	if rep.Positives == 0 {
		return nil
	}
	return []string{fmt.Sprintf("VirusTotal: %d/%d engines flagged", rep.Positives, rep.Total)}
}

func (o *Orchestrator) recordReport(ctx context.Context, kind, target string, threats []string) {
	_, err := o.history.Record(ctx, ScanRecord{
		Kind:    kind,
		Target:  target,
		IsSafe:  len(threats) == 0,
		Threats: threats,
	})
	if err != nil {
		o.logger.Warn("recording scan history",
			logging.Field{Key: "target", Value: target},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

type ScanEngines struct {
	PlayProtect      bool `json:"playProtect"`
	VirusTotal       bool `json:"virusTotal"`
	InternalDatabase bool `json:"internalDatabase"`
}

type ProtectionStats struct {
	TotalMalwareHashes int         `json:"totalMalwareHashes"`
	LastUpdated        time.Time   `json:"lastUpdated"`
	ProtectionLevel    string      `json:"protectionLevel"`
	ScanEngines        ScanEngines `json:"scanEngines"`
}

func (o *Orchestrator) ProtectionStats() ProtectionStats {
	return ProtectionStats{
		TotalMalwareHashes: o.malware.Count(),
		LastUpdated:        o.malware.LastUpdated().UTC(),
		ProtectionLevel:    "Active",
		ScanEngines: ScanEngines{
			PlayProtect:      true,
			VirusTotal:       o.vt.Enabled(),
			InternalDatabase: true,
		},
	}
}
