package auth

import "errors"

// ErrInvalidSignature is returned when a signed operation's password
// re-entry does not match the caller's stored hash. The operation must not
// apply anything when this is returned.
var ErrInvalidSignature = errors.New("la contraseña ingresada no es válida")
