package authn

import "context"

// Hooks de side effects. Son best-effort por contrato: el service los
// ejecuta después de resolver el flow y nunca deja que un fallo acá
// tumbe la autenticación.

// Telemetry identifica usuarios nuevos en el backend de analytics.
type Telemetry interface {
	Identify(ctx context.Context, userID, platformID, email string) error
}

// Newsletter registra el email en la lista de novedades.
type Newsletter interface {
	Subscribe(ctx context.Context, email string) error
}

// NopTelemetry y NopNewsletter son los defaults cuando no hay backend
// configurado.
type NopTelemetry struct{}

func (NopTelemetry) Identify(context.Context, string, string, string) error { return nil }

type NopNewsletter struct{}

func (NopNewsletter) Subscribe(context.Context, string) error { return nil }
