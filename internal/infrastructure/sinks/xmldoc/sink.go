package xmldoc

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"

	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
	"github.com/Tomas-vilte/MateMigrate/internal/domain/ports"
	"github.com/Tomas-vilte/MateMigrate/internal/logger"
)

var _ ports.IssueSink = (*Sink)(nil)

type (
	document struct {
		XMLName xml.Name `xml:"issues"`
		Issues  []issueElement
	}

	issueElement struct {
		XMLName       xml.Name `xml:"issue"`
		ID            string   `xml:"id"`
		Title         string   `xml:"title"`
		FormattedBody string   `xml:"formattedBody"`
		Description   string   `xml:"description"`
		User          string   `xml:"user"`
		CreatedAt     string   `xml:"createdAt"`
		AcceptedAt    string   `xml:"acceptedAt"`
		// Las listas vacías se serializan como contenedores vacíos, no
		// como elementos omitidos.
		Labels   labelList   `xml:"labels"`
		Files    fileList    `xml:"files"`
		Comments commentList `xml:"comments"`
	}

	labelList struct {
		Labels []string `xml:"label"`
	}

	fileList struct {
		Files []string `xml:"file"`
	}

	commentList struct {
		Comments []commentElement `xml:"comment"`
	}

	commentElement struct {
		FormattedBody string `xml:"formattedBody"`
	}
)

// Sink acumula las issues procesadas como un documento XML y lo escribe a
// disco al finalizar. No tiene noción de resume: cada corrida arranca en
// la fila 0.
type Sink struct {
	outputPath     string
	inlineComments bool
	doc            document
}

func NewSink(outputPath string, inlineComments bool) *Sink {
	return &Sink{outputPath: outputPath, inlineComments: inlineComments}
}

// CreateLabel no hace nada: el documento lista las etiquetas dentro de
// cada issue.
func (s *Sink) CreateLabel(_ context.Context, _ string) error {
	return nil
}

func (s *Sink) CreateIssue(_ context.Context, issue models.Issue) (*models.CreateResult, error) {
	element := issueElement{
		ID:            issue.ID,
		Title:         issue.Title,
		FormattedBody: issue.FormattedBody(s.inlineComments),
		Description:   issue.Body,
		User:          issue.User,
		CreatedAt:     issue.CreatedAt,
		AcceptedAt:    issue.AcceptedAt,
		Labels:        labelList{Labels: issue.Labels},
		Files:         fileList{Files: issue.Files},
	}
	for _, comment := range issue.Comments {
		element.Comments.Comments = append(element.Comments.Comments, commentElement{
			FormattedBody: comment.FormattedBody(),
		})
	}

	s.doc.Issues = append(s.doc.Issues, element)
	return &models.CreateResult{Number: len(s.doc.Issues), RateRemaining: -1}, nil
}

// Finalize escribe el documento completo como efecto terminal del sink.
func (s *Sink) Finalize(ctx context.Context) error {
	data, err := xml.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error al serializar el documento XML: %w", err)
	}

	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(s.outputPath, data, 0644); err != nil {
		return fmt.Errorf("error al escribir %s: %w", s.outputPath, err)
	}

	logger.Info(ctx, "archivo XML generado", "path", s.outputPath)
	return nil
}
