package authn

import "errors"

// Errores terminales de los flows de autenticación. InvalidCredentials
// cubre tanto "usuario inexistente" como "password incorrecto": el
// caller no debe poder distinguirlos (enumeración de cuentas).
var (
	ErrInvalidCredentials = errors.New("authn: invalid credentials")
	ErrUserInactive       = errors.New("authn: user is inactive")
	ErrEmailNotVerified   = errors.New("authn: email not verified")
	ErrUserAlreadyExists  = errors.New("authn: user already exists")
)
