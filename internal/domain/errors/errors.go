package errors

import (
	"fmt"
	"time"
)

// RateLimitLowError indica que la cuota sondeada no alcanza para todas las
// llamadas que requiere la creación de una issue. Es el único caso en que
// el agotamiento de cuota se reporta como error en vez de bloquearse.
type RateLimitLowError struct {
	Remaining int
	Required  int
	Reset     time.Time
}

func (e *RateLimitLowError) Error() string {
	return fmt.Sprintf(
		"rate limit demasiado bajo (%d) para una operación que requiere %d llamadas. Se restablece en: %s",
		e.Remaining, e.Required, e.Reset.Format(time.RFC1123),
	)
}

// NewRateLimitLowError crea un nuevo error de cuota insuficiente
func NewRateLimitLowError(remaining, required int, reset time.Time) *RateLimitLowError {
	return &RateLimitLowError{Remaining: remaining, Required: required, Reset: reset}
}

// InvalidRepoPathError indica un destino remoto que no respeta el formato
// "owner/repo".
type InvalidRepoPathError struct {
	Path string
}

func (e *InvalidRepoPathError) Error() string {
	return fmt.Sprintf("repositorio inválido %q: debe tener formato owner/repo", e.Path)
}

// NewInvalidRepoPathError crea un nuevo error de destino inválido
func NewInvalidRepoPathError(path string) *InvalidRepoPathError {
	return &InvalidRepoPathError{Path: path}
}

// InvalidModeError indica un modo de procesamiento desconocido.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("modo de procesamiento '%s' no soportado", e.Mode)
}

// NewInvalidModeError crea un nuevo error de modo inválido
func NewInvalidModeError(mode string) *InvalidModeError {
	return &InvalidModeError{Mode: mode}
}
