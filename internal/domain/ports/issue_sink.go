package ports

import (
	"context"

	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
)

// IssueSink define el destino de la migración. Hay dos variantes: el sink
// remoto de GitHub y el documento XML. El driver depende únicamente de esta
// interfaz y la variante se selecciona una sola vez al arrancar.
type IssueSink interface {
	// CreateLabel crea (o registra) una etiqueta. Los conflictos con
	// etiquetas ya existentes se tratan como éxito.
	CreateLabel(ctx context.Context, name string) error
	// CreateIssue crea la issue con sus comentarios, adjuntos y cierre.
	// Un resultado nil indica un fallo ya logueado, no fatal para el lote.
	CreateIssue(ctx context.Context, issue models.Issue) (*models.CreateResult, error)
	// Finalize descarga el estado terminal del sink (el documento XML en
	// disco; un log de cierre para el sink remoto).
	Finalize(ctx context.Context) error
}
