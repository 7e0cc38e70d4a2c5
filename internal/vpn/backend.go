package vpn

import "context"

// MockBackend accepts every operation. Used in development.
type MockBackend struct{}

func (MockBackend) Connect(context.Context) (string, error) { return ServerDevelopment, nil }
func (MockBackend) Disconnect(context.Context) error { return nil }
func (MockBackend) BlockDomain(context.Context, string) error { return nil }
func (MockBackend) UnblockDomain(context.Context, string) error { return nil }

// ProviderBackend targets a commercial VPN provider API.
// TODO: implement against the provider's REST API once a provider is chosen.
type ProviderBackend struct {
	APIURL string
	APIKey string
}

func (p *ProviderBackend) Connect(context.Context) (string, error) { return "", ErrNotImplemented }
func (p *ProviderBackend) Disconnect(context.Context) error { return ErrNotImplemented }
func (p *ProviderBackend) BlockDomain(context.Context, string) error { return ErrNotImplemented }
func (p *ProviderBackend) UnblockDomain(context.Context, string) error { return ErrNotImplemented }
