package github

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	domainerrors "github.com/Tomas-vilte/MateMigrate/internal/domain/errors"
	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
	"github.com/Tomas-vilte/MateMigrate/internal/domain/ports"
	"github.com/Tomas-vilte/MateMigrate/internal/logger"
	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var _ ports.IssueSink = (*Sink)(nil)

// baseCallOverhead es el colchón de llamadas que se suma al estimar la
// cuota requerida por una issue, además de sus comentarios, adjuntos y
// cierre.
const baseCallOverhead = 5

type IssuesService interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
	CreateLabel(ctx context.Context, owner, repo string, label *github.Label) (*github.Label, *github.Response, error)
	Edit(ctx context.Context, owner, repo string, number int, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
}

type RepositoriesService interface {
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

type RateLimitsService interface {
	Get(ctx context.Context) (*github.RateLimits, *github.Response, error)
}

// Options controla el comportamiento del sink remoto.
type Options struct {
	// InlineComments anexa los comentarios al cuerpo en lugar de crearlos
	// como comentarios remotos.
	InlineComments bool
	// UploadFiles habilita la transferencia real de adjuntos.
	UploadFiles bool
	// AttachmentsBase es el directorio del CSV; los adjuntos de cada issue
	// viven en AttachmentsBase/<id>/.
	AttachmentsBase string
	// Delay es la pausa fija entre escrituras remotas.
	Delay time.Duration
	// SafetyMargin se suma al reset del rate limit antes de reintentar.
	SafetyMargin time.Duration
}

// Sink escribe issues, etiquetas, comentarios y adjuntos en un repositorio
// de GitHub respetando la cuota del remoto. Nunca crea duplicados para
// entradas ya registradas en el checkpoint.
type Sink struct {
	issuesService IssuesService
	repoService   RepositoriesService
	owner         string
	repo          string
	checkpoint    ports.CheckpointStore
	opts          Options
	tracker       *rateTracker
	pacer         *rate.Limiter
}

func NewSink(owner, repo, token string, checkpoint ports.CheckpointStore, opts Options) *Sink {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(httpClient)

	return newSink(client.Issues, client.Repositories, client.RateLimit, owner, repo, checkpoint, opts)
}

// NewSinkWithServices permite inyectar los servicios, para tests.
func NewSinkWithServices(
	issuesService IssuesService,
	repoService RepositoriesService,
	limitsService RateLimitsService,
	owner string,
	repo string,
	checkpoint ports.CheckpointStore,
	opts Options,
) *Sink {
	return newSink(issuesService, repoService, limitsService, owner, repo, checkpoint, opts)
}

func newSink(
	issuesService IssuesService,
	repoService RepositoriesService,
	limitsService RateLimitsService,
	owner, repo string,
	checkpoint ports.CheckpointStore,
	opts Options,
) *Sink {
	if opts.Delay <= 0 {
		opts.Delay = 3 * time.Second
	}
	if opts.SafetyMargin <= 0 {
		opts.SafetyMargin = time.Minute
	}
	return &Sink{
		issuesService: issuesService,
		repoService:   repoService,
		owner:         owner,
		repo:          repo,
		checkpoint:    checkpoint,
		opts:          opts,
		tracker:       newRateTracker(limitsService, opts.SafetyMargin),
		pacer:         rate.NewLimiter(rate.Every(opts.Delay), 1),
	}
}

// CreateLabel crea la etiqueta de forma idempotente. Un conflicto con una
// etiqueta ya existente en el remoto cuenta como éxito y se registra en el
// checkpoint. Cualquier otro fallo se loguea y no detiene la creación de
// la issue: la etiqueta igual se adjunta por nombre.
func (s *Sink) CreateLabel(ctx context.Context, name string) error {
	if s.checkpoint.IsLabelKnown(name) {
		return nil
	}

	if err := s.tracker.Wait(ctx); err != nil {
		return err
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return err
	}

	label := &github.Label{
		Name:  github.Ptr(name),
		Color: github.Ptr(fmt.Sprintf("%06x", rand.Intn(0x1000000))),
	}
	_, resp, err := s.issuesService.CreateLabel(ctx, s.owner, s.repo, label)
	s.tracker.UpdateFromResponse(resp)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			logger.Info(ctx, "la etiqueta ya existe en GitHub", "label", name)
			s.recordLabel(ctx, name)
			return nil
		}
		logger.Error(ctx, "error al crear la etiqueta", err, "label", name)
		return nil
	}

	logger.Info(ctx, "etiqueta creada", "label", name)
	s.recordLabel(ctx, name)
	return nil
}

func (s *Sink) recordLabel(ctx context.Context, name string) {
	if err := s.checkpoint.RecordLabel(name); err != nil {
		// Si el checkpoint no se puede escribir, el resume queda roto:
		// esto tiene que verse.
		logger.Error(ctx, "no se pudo persistir la etiqueta en el checkpoint", err, "label", name)
	}
}

// CreateIssue sube los adjuntos en secuencia, crea la issue con el cuerpo
// formateado, crea los comentarios (salvo en modo inline) y la cierra si
// tiene fecha de aceptación. Antes de escribir verifica que la cuota
// sondeada cubra la estimación de llamadas requeridas.
func (s *Sink) CreateIssue(ctx context.Context, issue models.Issue) (*models.CreateResult, error) {
	if err := s.checkRateLimit(ctx, s.requiredCalls(issue)); err != nil {
		return nil, err
	}

	var fileLinks string
	for _, file := range issue.Files {
		link := s.uploadFile(ctx, issue.ID, filepath.Join(s.opts.AttachmentsBase, issue.ID, file))
		if link != "" {
			fileLinks += "\n- " + link
		}
	}

	body := issue.FormattedBody(s.opts.InlineComments)
	if fileLinks != "" {
		body += "\n\n---\n\n ## Files\n" + fileLinks
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	request := &github.IssueRequest{
		Title:  github.Ptr(issue.Title),
		Body:   github.Ptr(body),
		Labels: &issue.Labels,
	}
	created, resp, err := s.issuesService.Create(ctx, s.owner, s.repo, request)
	s.tracker.UpdateFromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("error al crear la issue %s: %w", issue.ID, err)
	}
	number := created.GetNumber()

	if !s.opts.InlineComments {
		for _, comment := range issue.Comments {
			s.createComment(ctx, number, comment)
		}
	}

	if issue.AcceptedAt != "" {
		s.CloseIssue(ctx, number, issue.AcceptedAt)
	}

	logger.Info(ctx, "issue creada", "number", number, "source_id", issue.ID)
	return &models.CreateResult{Number: number, RateRemaining: s.tracker.Remaining()}, nil
}

// requiredCalls estima las llamadas que consumirá la issue. Es una
// admisión conservadora, no una garantía: la cuota puede consumirse en
// paralelo por actividad ajena al adapter.
func (s *Sink) requiredCalls(issue models.Issue) int {
	required := baseCallOverhead + len(issue.Files)
	if !s.opts.InlineComments {
		required += len(issue.Comments)
	}
	if issue.AcceptedAt != "" {
		required++
	}
	return required
}

func (s *Sink) checkRateLimit(ctx context.Context, required int) error {
	if err := s.tracker.Wait(ctx); err != nil {
		return err
	}

	remaining, err := s.tracker.Probe(ctx)
	if err != nil {
		logger.Error(ctx, "error al consultar el rate limit", err)
		return nil
	}
	if remaining < required {
		return domainerrors.NewRateLimitLowError(remaining, required, s.tracker.LastReset())
	}
	return nil
}

// uploadFile sube un adjunto y devuelve el deep-link en markdown, o ""
// si el archivo local no existe. Con UploadFiles apagado devuelve el link
// sin transferir bytes. Un conflicto 422 significa que el archivo ya está
// en el repositorio y devuelve el mismo link.
func (s *Sink) uploadFile(ctx context.Context, id, filePath string) string {
	fileName := filepath.Base(filePath)
	link := fmt.Sprintf("[%s](https://github.com/%s/%s/raw/main/uploads/%s/%s)",
		fileName, s.owner, s.repo, id, url.PathEscape(fileName))

	if !s.opts.UploadFiles {
		return link
	}

	if err := s.tracker.Wait(ctx); err != nil {
		return ""
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		logger.Warn(ctx, "archivo no encontrado", "path", filePath)
		return ""
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return ""
	}
	logger.Info(ctx, "subiendo archivo", "file", fileName)
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(fmt.Sprintf("Upload attachment %s/%s", id, fileName)),
		Content: content,
	}
	_, resp, err := s.repoService.CreateFile(ctx, s.owner, s.repo,
		fmt.Sprintf("uploads/%s/%s", id, fileName), opts)
	s.tracker.UpdateFromResponse(resp)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			return link
		}
		logger.Error(ctx, "error al subir el archivo", err, "path", filePath)
		return ""
	}
	return link
}

func (s *Sink) createComment(ctx context.Context, number int, comment models.Comment) {
	if err := s.tracker.Wait(ctx); err != nil {
		return
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return
	}

	_, resp, err := s.issuesService.CreateComment(ctx, s.owner, s.repo, number, &github.IssueComment{
		Body: github.Ptr(comment.FormattedBody()),
	})
	s.tracker.UpdateFromResponse(resp)
	if err != nil {
		logger.Error(ctx, "error al crear el comentario", err, "number", number)
	}
}

// CloseIssue marca la issue remota como cerrada y completada. El fallo se
// loguea y no es fatal.
func (s *Sink) CloseIssue(ctx context.Context, number int, closedAt string) {
	if err := s.tracker.Wait(ctx); err != nil {
		return
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return
	}

	_, resp, err := s.issuesService.Edit(ctx, s.owner, s.repo, number, &github.IssueRequest{
		State:       github.Ptr("closed"),
		StateReason: github.Ptr("completed"),
	})
	s.tracker.UpdateFromResponse(resp)
	if err != nil {
		logger.Error(ctx, "error al cerrar la issue", err, "number", number, "closed_at", closedAt)
		return
	}
	logger.Info(ctx, "issue cerrada", "number", number)
}

func (s *Sink) Finalize(ctx context.Context) error {
	logger.Info(ctx, "procesamiento de GitHub completo")
	return nil
}
