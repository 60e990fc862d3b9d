package github

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	domainerrors "github.com/Tomas-vilte/MateMigrate/internal/domain/errors"
	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
	"github.com/Tomas-vilte/MateMigrate/internal/infrastructure/checkpoint"
	"github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupSink(t *testing.T, opts Options) (*Sink, *MockIssuesService, *MockRepositoriesService, *MockRateLimitsService, *MockCheckpointStore) {
	t.Helper()
	issues := new(MockIssuesService)
	repos := new(MockRepositoriesService)
	limits := new(MockRateLimitsService)
	store := new(MockCheckpointStore)

	if opts.Delay == 0 {
		opts.Delay = time.Millisecond
	}
	if opts.SafetyMargin == 0 {
		opts.SafetyMargin = time.Millisecond
	}
	sink := NewSinkWithServices(issues, repos, limits, "owner", "repo", store, opts)
	return sink, issues, repos, limits, store
}

func respWithRate(remaining, status int) *github.Response {
	return &github.Response{
		Response: &http.Response{StatusCode: status, Header: http.Header{}},
		Rate: github.Rate{
			Remaining: remaining,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
}

func coreLimits(remaining int) *github.RateLimits {
	return &github.RateLimits{
		Core: &github.Rate{
			Remaining: remaining,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
}

func TestSinkCreateLabel(t *testing.T) {
	ctx := context.Background()

	t.Run("no llama al remoto si el checkpoint ya conoce la etiqueta", func(t *testing.T) {
		sink, issues, _, _, store := setupSink(t, Options{})
		store.On("IsLabelKnown", "bug").Return(true)

		require.NoError(t, sink.CreateLabel(ctx, "bug"))

		issues.AssertNotCalled(t, "CreateLabel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("crea la etiqueta y la registra en el checkpoint", func(t *testing.T) {
		sink, issues, _, _, store := setupSink(t, Options{})
		store.On("IsLabelKnown", "bug").Return(false)
		issues.On("CreateLabel", mock.Anything, "owner", "repo", mock.Anything).
			Return(&github.Label{Name: github.Ptr("bug")}, respWithRate(42, http.StatusCreated), nil)
		store.On("RecordLabel", "bug").Return(nil)

		require.NoError(t, sink.CreateLabel(ctx, "bug"))

		store.AssertCalled(t, "RecordLabel", "bug")
	})

	t.Run("un conflicto 422 cuenta como éxito y se registra", func(t *testing.T) {
		sink, issues, _, _, store := setupSink(t, Options{})
		store.On("IsLabelKnown", "bug").Return(false)
		issues.On("CreateLabel", mock.Anything, "owner", "repo", mock.Anything).
			Return(nil, respWithRate(42, http.StatusUnprocessableEntity), errors.New("already_exists"))
		store.On("RecordLabel", "bug").Return(nil)

		require.NoError(t, sink.CreateLabel(ctx, "bug"))

		store.AssertCalled(t, "RecordLabel", "bug")
	})

	t.Run("las etiquetas concurrentes de una issue no pierden registros", func(t *testing.T) {
		issues := new(MockIssuesService)
		issues.On("CreateLabel", mock.Anything, "owner", "repo", mock.Anything).
			Return(&github.Label{}, respWithRate(42, http.StatusCreated), nil)

		store := checkpoint.Load(ctx, filepath.Join(t.TempDir(), "log.json"))
		sink := NewSinkWithServices(issues, new(MockRepositoriesService), new(MockRateLimitsService),
			"owner", "repo", store, Options{Delay: time.Microsecond, SafetyMargin: time.Millisecond})

		labels := []string{"bug", "chore", "feature", "high", "low"}
		var wg sync.WaitGroup
		for _, name := range labels {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				assert.NoError(t, sink.CreateLabel(ctx, name))
			}(name)
		}
		wg.Wait()

		for _, name := range labels {
			assert.True(t, store.IsLabelKnown(name), "etiqueta %s no registrada", name)
		}
	})

	t.Run("otros fallos no se registran ni son fatales", func(t *testing.T) {
		sink, issues, _, _, store := setupSink(t, Options{})
		store.On("IsLabelKnown", "bug").Return(false)
		issues.On("CreateLabel", mock.Anything, "owner", "repo", mock.Anything).
			Return(nil, respWithRate(42, http.StatusInternalServerError), errors.New("boom"))

		require.NoError(t, sink.CreateLabel(ctx, "bug"))

		store.AssertNotCalled(t, "RecordLabel", "bug")
	})
}

func TestSinkCreateIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("falla rápido si la cuota no cubre la estimación", func(t *testing.T) {
		sink, issues, _, limits, _ := setupSink(t, Options{})
		limits.On("Get", mock.Anything).Return(coreLimits(3), nil, nil)

		_, err := sink.CreateIssue(ctx, models.Issue{ID: "1", Title: "x"})

		var rateErr *domainerrors.RateLimitLowError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, 3, rateErr.Remaining)
		assert.Equal(t, 5, rateErr.Required)
		issues.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("crea la issue, sus comentarios y la cierra si fue aceptada", func(t *testing.T) {
		sink, issues, _, limits, _ := setupSink(t, Options{})
		limits.On("Get", mock.Anything).Return(coreLimits(100), nil, nil)

		issue := models.Issue{
			ID:         "42",
			Title:      "Login broken",
			Body:       "Cannot log in",
			Labels:     []string{"bug"},
			User:       "ana",
			CreatedAt:  "Jan 1",
			AcceptedAt: "Feb 1",
			Comments:   []models.Comment{{Body: "(Jan 2) first"}, {Body: "(Jan 3) second"}},
		}

		issues.On("Create", mock.Anything, "owner", "repo", mock.MatchedBy(func(req *github.IssueRequest) bool {
			return req.GetTitle() == "Login broken" && strings.Contains(req.GetBody(), "#42")
		})).Return(&github.Issue{Number: github.Ptr(7)}, respWithRate(42, http.StatusCreated), nil)
		issues.On("CreateComment", mock.Anything, "owner", "repo", 7, mock.Anything).
			Return(&github.IssueComment{}, respWithRate(41, http.StatusCreated), nil).Twice()
		issues.On("Edit", mock.Anything, "owner", "repo", 7, mock.MatchedBy(func(req *github.IssueRequest) bool {
			return req.GetState() == "closed" && req.GetStateReason() == "completed"
		})).Return(&github.Issue{}, respWithRate(40, http.StatusOK), nil)

		result, err := sink.CreateIssue(ctx, issue)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, 7, result.Number)
		assert.Equal(t, 40, result.RateRemaining)
		issues.AssertExpectations(t)
	})

	t.Run("en modo inline no crea comentarios remotos", func(t *testing.T) {
		sink, issues, _, limits, _ := setupSink(t, Options{InlineComments: true})
		limits.On("Get", mock.Anything).Return(coreLimits(100), nil, nil)
		issues.On("Create", mock.Anything, "owner", "repo", mock.MatchedBy(func(req *github.IssueRequest) bool {
			return strings.Contains(req.GetBody(), "## Comments")
		})).Return(&github.Issue{Number: github.Ptr(8)}, respWithRate(42, http.StatusCreated), nil)

		issue := models.Issue{ID: "1", Title: "x", Comments: []models.Comment{{Body: "(Jan 2) hi"}}}
		result, err := sink.CreateIssue(ctx, issue)

		require.NoError(t, err)
		assert.Equal(t, 8, result.Number)
		issues.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("con upload apagado anexa el deep-link sin transferir", func(t *testing.T) {
		base := t.TempDir()
		sink, issues, repos, limits, _ := setupSink(t, Options{AttachmentsBase: base})
		limits.On("Get", mock.Anything).Return(coreLimits(100), nil, nil)
		issues.On("Create", mock.Anything, "owner", "repo", mock.MatchedBy(func(req *github.IssueRequest) bool {
			return strings.Contains(req.GetBody(), "## Files") &&
				strings.Contains(req.GetBody(), "[a b.png](https://github.com/owner/repo/raw/main/uploads/42/a%20b.png)")
		})).Return(&github.Issue{Number: github.Ptr(9)}, respWithRate(42, http.StatusCreated), nil)

		issue := models.Issue{ID: "42", Title: "x", Files: []string{"a b.png"}}
		_, err := sink.CreateIssue(ctx, issue)

		require.NoError(t, err)
		repos.AssertNotCalled(t, "CreateFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sube los adjuntos en secuencia cuando el upload está habilitado", func(t *testing.T) {
		base := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(base, "42"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(base, "42", "a.png"), []byte("img"), 0644))

		sink, issues, repos, limits, _ := setupSink(t, Options{AttachmentsBase: base, UploadFiles: true})
		limits.On("Get", mock.Anything).Return(coreLimits(100), nil, nil)
		repos.On("CreateFile", mock.Anything, "owner", "repo", "uploads/42/a.png", mock.Anything).
			Return(&github.RepositoryContentResponse{}, respWithRate(42, http.StatusCreated), nil)
		issues.On("Create", mock.Anything, "owner", "repo", mock.MatchedBy(func(req *github.IssueRequest) bool {
			return strings.Contains(req.GetBody(), "uploads/42/a.png")
		})).Return(&github.Issue{Number: github.Ptr(10)}, respWithRate(42, http.StatusCreated), nil)

		issue := models.Issue{ID: "42", Title: "x", Files: []string{"a.png"}}
		_, err := sink.CreateIssue(ctx, issue)

		require.NoError(t, err)
		repos.AssertExpectations(t)
	})

	t.Run("un adjunto local ausente degrada a issue sin link", func(t *testing.T) {
		base := t.TempDir()
		sink, issues, repos, limits, _ := setupSink(t, Options{AttachmentsBase: base, UploadFiles: true})
		limits.On("Get", mock.Anything).Return(coreLimits(100), nil, nil)
		issues.On("Create", mock.Anything, "owner", "repo", mock.MatchedBy(func(req *github.IssueRequest) bool {
			return !strings.Contains(req.GetBody(), "## Files")
		})).Return(&github.Issue{Number: github.Ptr(11)}, respWithRate(42, http.StatusCreated), nil)

		issue := models.Issue{ID: "42", Title: "x", Files: []string{"ghost.png"}}
		_, err := sink.CreateIssue(ctx, issue)

		require.NoError(t, err)
		repos.AssertNotCalled(t, "CreateFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("devuelve error si la creación remota falla", func(t *testing.T) {
		sink, issues, _, limits, _ := setupSink(t, Options{})
		limits.On("Get", mock.Anything).Return(coreLimits(100), nil, nil)
		issues.On("Create", mock.Anything, "owner", "repo", mock.Anything).
			Return(nil, respWithRate(42, http.StatusInternalServerError), errors.New("boom"))

		result, err := sink.CreateIssue(ctx, models.Issue{ID: "1", Title: "x"})

		assert.Error(t, err)
		assert.Nil(t, result)
	})
}
