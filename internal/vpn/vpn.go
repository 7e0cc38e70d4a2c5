package vpn

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/shieldsuite/internal/logging"
)

const (
	ServerDisconnected = "Not Connected"
	ServerDevelopment  = "Development Server"
)

var (
	ErrDomainRequired = errors.New("domain is required")
	ErrNotImplemented = errors.New("production VPN not implemented")
)

// Status is the VPN state reported to clients.
type Status struct {
	IsEnabled      bool      `json:"isEnabled"`
	CurrentServer  string    `json:"currentServer"`
	BlockedDomains []string  `json:"blockedDomains"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Backend performs the actual tunnel and filtering operations.
type Backend interface {
	Connect(ctx context.Context) (server string, err error)
	Disconnect(ctx context.Context) error
	BlockDomain(ctx context.Context, domain string) error
	UnblockDomain(ctx context.Context, domain string) error
}

type Config struct {
	// Development makes backend failures fall back to mocked state changes.
	Development bool   `yaml:"development"`
	APIURL      string `yaml:"api_url"`
	APIKey      string `yaml:"api_key"`
}

// Service tracks VPN state. All methods are safe for concurrent use.
type Service struct {
	backend Backend
	dev     bool
	logger  logging.Logger
	now     func() time.Time

	mu     sync.Mutex
	status Status
}

// NewService builds a service. When backend is nil a development service
// uses MockBackend and a production one uses ProviderBackend.
func NewService(cfg Config, backend Backend, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if backend == nil {
		if cfg.Development {
			backend = MockBackend{}
		} else {
			backend = &ProviderBackend{APIURL: cfg.APIURL, APIKey: cfg.APIKey}
		}
	}
	mode := "production"
	if cfg.Development {
		mode = "development"
	}
	l := logger.With(logging.Field{Key: "component", Value: "vpn"})
	l.Info("vpn service initialized", logging.Field{Key: "mode", Value: mode})

	return &Service{
		backend: backend,
		dev:     cfg.Development,
		logger:  l,
		now:     time.Now,
		status: Status{
			CurrentServer:  ServerDisconnected,
			BlockedDomains: []string{},
			LastUpdated:    time.Now().UTC(),
		},
	}
}

func (s *Service) snapshot() Status {
	st := s.status
	st.BlockedDomains = slices.Clone(s.status.BlockedDomains)
	return st
}

// Status returns the current state.
func (s *Service) Status(_ context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// BlockedDomains returns the blocked domain list.
func (s *Service) BlockedDomains(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.status.BlockedDomains)
}

// fallback decides whether a backend failure is absorbed. In development the
// state change is applied anyway.
func (s *Service) fallback(op string, err error) error {
	if err == nil {
		return nil
	}
	if s.dev {
		s.logger.Warn("vpn backend failed, applying mock state",
			logging.Field{Key: "op", Value: op},
			logging.Field{Key: "error", Value: err})
		return nil
	}
	s.logger.Error("vpn backend failed",
		logging.Field{Key: "op", Value: op},
		logging.Field{Key: "error", Value: err})
	return err
}

func (s *Service) Connect(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, err := s.backend.Connect(ctx)
	if err := s.fallback("connect", err); err != nil {
		return s.snapshot(), err
	}
	if err != nil || server == "" {
		server = ServerDevelopment
	}
	s.status.IsEnabled = true
	s.status.CurrentServer = server
	s.status.LastUpdated = s.now().UTC()
	return s.snapshot(), nil
}

func (s *Service) Disconnect(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fallback("disconnect", s.backend.Disconnect(ctx)); err != nil {
		return s.snapshot(), err
	}
	s.status.IsEnabled = false
	s.status.CurrentServer = ServerDisconnected
	s.status.LastUpdated = s.now().UTC()
	return s.snapshot(), nil
}

func normalizeDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}

// BlockDomain adds a domain to the block list. Blocking a domain twice is a
// no-op.
func (s *Service) BlockDomain(ctx context.Context, domain string) (Status, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return Status{}, ErrDomainRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.status.BlockedDomains, domain) {
		return s.snapshot(), nil
	}
	if err := s.fallback("block-domain", s.backend.BlockDomain(ctx, domain)); err != nil {
		return s.snapshot(), err
	}
	s.status.BlockedDomains = append(s.status.BlockedDomains, domain)
	s.status.LastUpdated = s.now().UTC()
	return s.snapshot(), nil
}

// UnblockDomain removes a domain from the block list.
func (s *Service) UnblockDomain(ctx context.Context, domain string) (Status, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return Status{}, ErrDomainRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.status.BlockedDomains, domain)
	if i < 0 {
		return s.snapshot(), nil
	}
	if err := s.fallback("unblock-domain", s.backend.UnblockDomain(ctx, domain)); err != nil {
		return s.snapshot(), err
	}
	s.status.BlockedDomains = slices.Delete(s.status.BlockedDomains, i, i+1)
	s.status.LastUpdated = s.now().UTC()
	return s.snapshot(), nil
}
