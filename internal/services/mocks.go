package services

import (
	"context"

	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
	"github.com/Tomas-vilte/MateMigrate/internal/infrastructure/pivotal"
	"github.com/stretchr/testify/mock"
)

type (
	MockIssueSink struct {
		mock.Mock
	}

	MockRowMapper struct {
		mock.Mock
	}

	MockCheckpointStore struct {
		mock.Mock
	}
)

func (m *MockIssueSink) CreateLabel(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockIssueSink) CreateIssue(ctx context.Context, issue models.Issue) (*models.CreateResult, error) {
	args := m.Called(ctx, issue)
	var result *models.CreateResult
	if args.Get(0) != nil {
		result = args.Get(0).(*models.CreateResult)
	}
	return result, args.Error(1)
}

func (m *MockIssueSink) Finalize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRowMapper) MapToIssue(ctx context.Context, row pivotal.Row) models.Issue {
	args := m.Called(ctx, row)
	return args.Get(0).(models.Issue)
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
