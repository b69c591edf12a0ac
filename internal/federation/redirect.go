package federation

import (
	"strings"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
)

// RedirectResolver construye el redirect_uri de los flows federados.
// El valor tiene que ser byte-idéntico entre la construcción de la
// login URL y el code exchange del mismo flow, o el provider rechaza
// el intercambio; por eso ambos pasos llaman a este único Resolve.
type RedirectResolver struct {
	// FrontendBase es la URL base del frontend compartido.
	FrontendBase string
}

// Resolve retorna {frontendBase}/redirect para el caso default, o
// https://{requestHost}/redirect cuando el request llega por el custom
// domain de la plataforma.
func (r RedirectResolver) Resolve(platform *repository.Platform, requestHost string) string {
	if platform != nil && platform.CustomDomain != "" && requestHost != "" &&
		strings.EqualFold(platform.CustomDomain, requestHost) {
		return "https://" + requestHost + "/redirect"
	}
	return strings.TrimRight(r.FrontendBase, "/") + "/redirect"
}
