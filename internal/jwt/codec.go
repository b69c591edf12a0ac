// Package jwt implementa el primitivo puro de firma y verificación de
// tokens del core. Sign/Verify operan sobre una clave y opciones
// explícitas; la resolución de claves (secret gestionado, registry por
// kid, JWKS remoto) vive en los packages que lo consumen.
package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken agrupa todo fallo de verificación: firma inválida,
// algoritmo fuera del allow-list, expiración, issuer o audience.
var ErrInvalidToken = errors.New("jwt: invalid token")

// MapClaims re-exporta el tipo de claims de golang-jwt para no filtrar
// el import con alias en cada caller.
type MapClaims = jwtv5.MapClaims

// SignOptions controla la emisión de un token.
type SignOptions struct {
	// Algorithm es el método de firma: "HS256", "RS256", etc.
	Algorithm string

	// ExpiresIn setea exp = now + ExpiresIn. 0 = sin exp.
	ExpiresIn time.Duration

	// Issuer setea el claim "iss" si no está vacío.
	Issuer string

	// KeyID setea el header "kid" si no está vacío.
	KeyID string
}

// VerifyOptions controla la verificación de un token.
type VerifyOptions struct {
	// Algorithms es el allow-list de métodos aceptados. Obligatorio:
	// nunca se acepta "none" ni un método no pedido.
	Algorithms []string

	// Issuer exige igualdad del claim "iss" si no está vacío.
	Issuer string

	// Audience exige que "aud" contenga este valor si no está vacío.
	Audience string
}

// Sign firma los claims con la clave dada y retorna el JWT compacto.
// No muta el mapa recibido. Para HS256 la clave debe ser []byte; para
// RS256, *rsa.PrivateKey.
func Sign(claims MapClaims, key any, opt SignOptions) (string, error) {
	if opt.Algorithm == "" {
		return "", fmt.Errorf("jwt: algorithm required")
	}
	method := jwtv5.GetSigningMethod(opt.Algorithm)
	if method == nil {
		return "", fmt.Errorf("jwt: unknown algorithm %q", opt.Algorithm)
	}

	now := time.Now().UTC()
	mc := jwtv5.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	if opt.Issuer != "" {
		mc["iss"] = opt.Issuer
	}
	if _, ok := mc["iat"]; !ok {
		mc["iat"] = now.Unix()
	}
	if opt.ExpiresIn > 0 {
		mc["exp"] = now.Add(opt.ExpiresIn).Unix()
	}

	tk := jwtv5.NewWithClaims(method, mc)
	tk.Header["typ"] = "JWT"
	if opt.KeyID != "" {
		tk.Header["kid"] = opt.KeyID
	}
	signed, err := tk.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Verify valida firma, expiración y (si se piden) issuer y audience.
// Retorna los claims del token. Todo fallo se reporta como
// ErrInvalidToken envuelto con la causa.
func Verify(token string, key any, opt VerifyOptions) (MapClaims, error) {
	if len(opt.Algorithms) == 0 {
		return nil, fmt.Errorf("%w: no algorithms allowed", ErrInvalidToken)
	}

	parserOpts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods(opt.Algorithms),
		jwtv5.WithIssuedAt(),
	}
	if opt.Issuer != "" {
		parserOpts = append(parserOpts, jwtv5.WithIssuer(opt.Issuer))
	}
	if opt.Audience != "" {
		parserOpts = append(parserOpts, jwtv5.WithAudience(opt.Audience))
	}

	parsed, err := jwtv5.Parse(token, func(t *jwtv5.Token) (any, error) {
		return key, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	return mc, nil
}

// DecodeUnsafe decodifica header y payload SIN verificar la firma.
// Existe solo para leer hints de ruteo (kid) antes de conocer la clave
// real; los callers nunca deben confiar en el payload retornado.
func DecodeUnsafe(token string) (header map[string]any, payload MapClaims, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, nil, fmt.Errorf("%w: bad compact serialization", ErrInvalidToken)
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	if err := json.Unmarshal(pb, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}
	return header, payload, nil
}

// KIDFromHeader extrae el kid del header decodificado; "" si falta.
func KIDFromHeader(header map[string]any) string {
	kid, _ := header["kid"].(string)
	return kid
}
