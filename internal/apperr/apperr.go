// Package apperr define los errores que el motor de órdenes devuelve a la consola.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage se usa cuando no hay nada mejor que mostrar.
const GenericMessage = "something went wrong, please try again"

// ValidationError es un error local: no se hizo ninguna llamada remota.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RemoteError cubre fallas de red, respuestas de error y rechazos de negocio del servicio remoto.
type RemoteError struct {
	StatusCode int // 0 si nunca hubo respuesta
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote call failed: %s", e.Message)
	}
	return fmt.Sprintf("remote call failed (%d): %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NotFound indica que el recurso remoto no existe.
func (e *RemoteError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Conflict indica que la versión enviada quedó vieja.
func (e *RemoteError) Conflict() bool { return e.StatusCode == http.StatusConflict }

// Message extrae un texto mostrable de cualquier error del motor.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var rerr *RemoteError
	if errors.As(err, &rerr) && rerr.Message != "" {
		return rerr.Message
	}
	return GenericMessage
}

// Field devuelve el campo de un ValidationError, o "" si no lo es.
func Field(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}
