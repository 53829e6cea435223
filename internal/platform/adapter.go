package platform

import (
	"context"
	"fmt"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

// Adapter hides one delivery platform's webhook dialect, signature scheme and
// REST API behind a uniform surface. Implementations must keep
// ValidateSignature constant-time and must never let an unknown upstream
// status escape as an error — unmapped statuses degrade to a logged fallback.
type Adapter interface {
	Code() enums.PlatformCode
	SignatureHeader() string
	ValidateSignature(signature string, body []byte) bool
	ParseWebhook(body []byte) (*WebhookEvent, error)

	AcceptOrder(ctx context.Context, externalID string, estimatedPrepMinutes int) PushResult
	RejectOrder(ctx context.Context, externalID string, reason string) PushResult
	UpdateOrderStatus(ctx context.Context, externalID string, status enums.OrderStatus) PushResult

	PushMenu(ctx context.Context, products []MenuProduct) PushResult
	UpdateAvailability(ctx context.Context, update AvailabilityUpdate) PushResult
}

// Registry is the closed set of wired adapters. Adding a platform means
// adding an enums.PlatformCode constant, an adapter package and a
// constructor argument here; there is no dynamic registration.
type Registry struct {
	adapters map[enums.PlatformCode]Adapter
}

// NewRegistry wires the provided adapters. Nil entries are skipped so a
// deployment can run with a subset of integrations configured.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	reg := &Registry{adapters: map[enums.PlatformCode]Adapter{}}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		code := a.Code()
		if !code.IsValid() {
			return nil, fmt.Errorf("adapter reports invalid platform code %q", code)
		}
		if _, dup := reg.adapters[code]; dup {
			return nil, fmt.Errorf("duplicate adapter for platform %s", code)
		}
		reg.adapters[code] = a
	}
	return reg, nil
}

// Get returns the adapter for the code or a NOT_FOUND domain error.
func (r *Registry) Get(code enums.PlatformCode) (Adapter, error) {
	if a, ok := r.adapters[code]; ok {
		return a, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no adapter wired for platform %s", code))
}

// Codes lists the wired platform codes.
func (r *Registry) Codes() []enums.PlatformCode {
	codes := make([]enums.PlatformCode, 0, len(r.adapters))
	for code := range r.adapters {
		codes = append(codes, code)
	}
	return codes
}
