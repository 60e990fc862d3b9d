package github

import (
	"context"

	"github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/mock"
)

type (
	MockIssuesService struct {
		mock.Mock
	}

	MockRepositoriesService struct {
		mock.Mock
	}

	MockRateLimitsService struct {
		mock.Mock
	}

	MockCheckpointStore struct {
		mock.Mock
	}
)

func (m *MockIssuesService) Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error) {
	args := m.Called(ctx, owner, repo, issue)
	return asIssue(args.Get(0)), asResponse(args.Get(1)), args.Error(2)
}

func (m *MockIssuesService) CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, comment)
	var created *github.IssueComment
	if args.Get(0) != nil {
		created = args.Get(0).(*github.IssueComment)
	}
	return created, asResponse(args.Get(1)), args.Error(2)
}

func (m *MockIssuesService) CreateLabel(ctx context.Context, owner, repo string, label *github.Label) (*github.Label, *github.Response, error) {
	args := m.Called(ctx, owner, repo, label)
	var created *github.Label
	if args.Get(0) != nil {
		created = args.Get(0).(*github.Label)
	}
	return created, asResponse(args.Get(1)), args.Error(2)
}

func (m *MockIssuesService) Edit(ctx context.Context, owner, repo string, number int, issue *github.IssueRequest) (*github.Issue, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, issue)
	return asIssue(args.Get(0)), asResponse(args.Get(1)), args.Error(2)
}

func (m *MockRepositoriesService) CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	args := m.Called(ctx, owner, repo, path, opts)
	var created *github.RepositoryContentResponse
	if args.Get(0) != nil {
		created = args.Get(0).(*github.RepositoryContentResponse)
	}
	return created, asResponse(args.Get(1)), args.Error(2)
}

func (m *MockRateLimitsService) Get(ctx context.Context) (*github.RateLimits, *github.Response, error) {
	args := m.Called(ctx)
	var limits *github.RateLimits
	if args.Get(0) != nil {
		limits = args.Get(0).(*github.RateLimits)
	}
	return limits, asResponse(args.Get(1)), args.Error(2)
}

func (m *MockCheckpointStore) RecordIssue(rowIndex int, sourceID string, remoteNumber int, rateRemaining int) error {
	args := m.Called(rowIndex, sourceID, remoteNumber, rateRemaining)
	return args.Error(0)
}

func (m *MockCheckpointStore) RecordLabel(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockCheckpointStore) IsLabelKnown(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}

func (m *MockCheckpointStore) MissingIDs(allIDs []string) []string {
	args := m.Called(allIDs)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockCheckpointStore) LastProcessedIndex() int {
	args := m.Called()
	return args.Int(0)
}

func asIssue(value interface{}) *github.Issue {
	if value == nil {
		return nil
	}
	return value.(*github.Issue)
}

func asResponse(value interface{}) *github.Response {
	if value == nil {
		return nil
	}
	return value.(*github.Response)
}
