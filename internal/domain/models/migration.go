package models

import (
	"fmt"
	"regexp"
	"strings"
)

var parenGroups = regexp.MustCompile(`\((.*?)\)`)

// Comment representa un comentario heredado de la fila de origen. Los
// comentarios no tienen autor ni fecha propios en el export, así que
// heredan los de la issue.
type Comment struct {
	Body string
	User string
	Date string
}

// FormattedBody renderiza el comentario en markdown: el último grupo entre
// paréntesis se promueve a encabezado (o el literal "Comment" si no hay
// ninguno). El grupo se elimina del cuerpo solo cuando está en un borde
// del texto; un paréntesis en medio de una oración se conserva.
func (c Comment) FormattedBody() string {
	heading := "Comment"
	body := c.Body
	if locs := parenGroups.FindAllStringSubmatchIndex(c.Body, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		heading = c.Body[last[2]:last[3]]

		before, after := c.Body[:last[0]], c.Body[last[1]:]
		if strings.TrimSpace(before) == "" || strings.TrimSpace(after) == "" {
			body = strings.TrimSpace(before + after)
		}
	}
	return fmt.Sprintf("#### (%s)\n%s", heading, body)
}

// Issue es el modelo normalizado de un item de trabajo migrado. ID es el
// identificador de la fila de origen y actúa como clave de join contra el
// checkpoint.
type Issue struct {
	ID         string
	Title      string
	Body       string
	Labels     []string
	User       string
	CreatedAt  string
	AcceptedAt string
	Files      []string
	Comments   []Comment
}

// FormattedBody renderiza el cuerpo final de la issue: encabezado con id,
// autor y fechas, luego la descripción. Con inlineComments activo, los
// comentarios se anexan al cuerpo en lugar de crearse por separado.
func (i Issue) FormattedBody(inlineComments bool) string {
	dates := i.CreatedAt
	if i.AcceptedAt != "" {
		dates = fmt.Sprintf("%s (accepted: %s)", i.CreatedAt, i.AcceptedAt)
	}

	text := fmt.Sprintf("#%s\n\n ## %s: %s\n\n%s", i.ID, i.User, dates, i.Body)

	if inlineComments && len(i.Comments) > 0 {
		formatted := make([]string, len(i.Comments))
		for idx, comment := range i.Comments {
			formatted[idx] = comment.FormattedBody()
		}
		text += "\n\n---\n## Comments\n" + strings.Join(formatted, "\n\n---\n---\n\n")
	}

	return text
}

// CreateResult es el resultado de crear una issue en el sink remoto:
// número asignado por el remoto y cuota restante observada.
type CreateResult struct {
	Number        int
	RateRemaining int
}
