package pivotal

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
	"github.com/Tomas-vilte/MateMigrate/internal/logger"
)

// RowMapper transforma una fila cruda del export en el modelo de dominio.
// Es total: las columnas opcionales faltantes degradan a valores por
// defecto y nunca hacen fallar el mapeo.
type RowMapper struct {
	// basePath es el directorio del CSV; los adjuntos viven en un
	// subdirectorio llamado igual que el Id de la fila.
	basePath string
}

func NewRowMapper(csvPath string) *RowMapper {
	return &RowMapper{basePath: filepath.Dir(csvPath)}
}

func (m *RowMapper) MapToIssue(ctx context.Context, row Row) models.Issue {
	issue := models.Issue{
		ID:         row.Get("Id"),
		Title:      row.Get("Title"),
		Body:       row.Get("Description"),
		Labels:     m.labels(row),
		User:       m.user(row),
		CreatedAt:  row.Get("Created at"),
		AcceptedAt: row.Get("Accepted at"),
		Comments:   m.comments(row),
	}
	issue.Files = m.attachedFiles(ctx, issue.ID)
	return issue
}

func (m *RowMapper) user(row Row) string {
	if user := row.Get("Requested By"); user != "" {
		return user
	}
	if user := row.Get("Owned By"); user != "" {
		return user
	}
	return "Unknown"
}

// labels deriva el conjunto de etiquetas: Type y Priority en minúsculas
// más la columna Labels separada por comas, sin duplicados ni vacíos.
func (m *RowMapper) labels(row Row) []string {
	var candidates []string
	if t := row.Get("Type"); t != "" {
		candidates = append(candidates, strings.ToLower(t))
	}
	if p := row.Get("Priority"); p != "" {
		candidates = append(candidates, strings.ToLower(p))
	}
	if raw := row.Get("Labels"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			candidates = append(candidates, strings.TrimSpace(label))
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	var labels []string
	for _, label := range candidates {
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// comments recorre las columnas en orden de encuentro y convierte cada
// columna "Comment*" con contenido no blanco en un comentario que hereda
// el autor y la fecha de creación de la fila.
func (m *RowMapper) comments(row Row) []models.Comment {
	user := m.user(row)
	date := row.Get("Created at")

	var comments []models.Comment
	for _, column := range row.Columns() {
		if !strings.HasPrefix(column, "Comment") {
			continue
		}
		body := row.Get(column)
		if strings.TrimSpace(body) == "" {
			continue
		}
		comments = append(comments, models.Comment{Body: body, User: user, Date: date})
	}
	return comments
}

// attachedFiles lista el directorio hermano llamado como el Id. Un
// directorio inexistente o ilegible no es un error de mapeo: se loguea y
// la issue queda sin adjuntos.
func (m *RowMapper) attachedFiles(ctx context.Context, id string) []string {
	if id == "" {
		return nil
	}

	entries, err := os.ReadDir(filepath.Join(m.basePath, id))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn(ctx, "no se pudieron leer los adjuntos", "issue_id", id, "error", err)
		}
		return nil
	}

	var files []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, entry.Name())
	}
	return files
}
