package payment

import (
	"fmt"
	"strings"

	"github.com/mavi-pizzeria/api/internal/enum"
)

// Name identifies a payment provider.
type Name string

const (
	NameStripe       Name = "STRIPE"
	NameVerkkomaksu  Name = "VERKKOMAKSU"
	NameLounasseteli Name = "LOUNASSETELI"
	NameEpassi       Name = "EPASSI"
	NameCash         Name = "CASH"
	NameMock         Name = "MOCK"
)

// Names lists every provider in a stable order.
var Names = []Name{NameStripe, NameVerkkomaksu, NameLounasseteli, NameEpassi, NameCash, NameMock}

// ParseName accepts a provider name in any case. "card" is an alias for STRIPE.
func ParseName(s string) (Name, error) {
	up := Name(strings.ToUpper(strings.TrimSpace(s)))
	if up == Name(enum.PaymentMethodCard) {
		return NameStripe, nil
	}
	for _, n := range Names {
		if n == up {
			return n, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownProvider)
}

// ForMethod maps an order payment method to the provider that serves it.
func ForMethod(method string) (Name, error) {
	switch method {
	case enum.PaymentMethodCard:
		return NameStripe, nil
	case enum.PaymentMethodVerkkomaksu:
		return NameVerkkomaksu, nil
	case enum.PaymentMethodLounasseteli:
		return NameLounasseteli, nil
	case enum.PaymentMethodEpassi:
		return NameEpassi, nil
	case enum.PaymentMethodCash:
		return NameCash, nil
	}
	return "", fmt.Errorf("payment method %q: %w", method, ErrUnknownProvider)
}

// Registry holds one slot per provider. A nil slot means the provider is not
// configured in this deployment.
type Registry struct {
	Stripe       Provider
	Verkkomaksu  Provider
	Lounasseteli Provider
	Epassi       Provider
	Cash         Provider
	Mock         Provider

	// MockAll routes every non-cash method to Mock.
	MockAll bool
}

// Get returns the provider for name.
func (r *Registry) Get(name Name) (Provider, error) {
	var p Provider
	switch name {
	case NameStripe:
		p = r.Stripe
	case NameVerkkomaksu:
		p = r.Verkkomaksu
	case NameLounasseteli:
		p = r.Lounasseteli
	case NameEpassi:
		p = r.Epassi
	case NameCash:
		p = r.Cash
	case NameMock:
		p = r.Mock
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProvider)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrProviderNotConfigured)
	}
	return p, nil
}

// Resolve picks the provider name for an order's payment method, honouring
// MockAll.
func (r *Registry) Resolve(method string) (Name, error) {
	name, err := ForMethod(method)
	if err != nil {
		return "", err
	}
	if r.MockAll && name != NameCash {
		return NameMock, nil
	}
	return name, nil
}

// RegistryConfig carries the credentials and URLs every provider needs.
type RegistryConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	BankAccount         string
	BankSecret          string
	BankBaseURL         string
	CustomerURL         string
	BackendURL          string
	Mock                bool
}

// NewRegistry builds the provider set. Card checkout stays unconfigured
// without a Stripe key, the bank gateway without credentials and the mock
// provider unless Mock is set.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{
		Lounasseteli: NewLounasseteli(cfg.CustomerURL),
		Epassi:       NewEpassi(cfg.CustomerURL),
		Cash:         Cash{},
		MockAll:      cfg.Mock,
	}
	if cfg.Mock {
		r.Mock = NewMock(cfg.CustomerURL)
	}
	if cfg.StripeSecretKey != "" {
		r.Stripe = NewCard(CardConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			CustomerURL:   cfg.CustomerURL,
		})
	}
	if cfg.BankAccount != "" && cfg.BankSecret != "" {
		r.Verkkomaksu = NewBank(BankConfig{
			Account:     cfg.BankAccount,
			Secret:      cfg.BankSecret,
			BaseURL:     cfg.BankBaseURL,
			CustomerURL: cfg.CustomerURL,
			BackendURL:  cfg.BackendURL,
		})
	}
	return r
}
