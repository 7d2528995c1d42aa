package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Select(ctx context.Context, q entity.Query) (entity.Snapshot, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(entity.Snapshot), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, patch entity.Patch, ids []string) ([]entity.Hospital, error) {
	args := m.Called(ctx, patch, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Hospital), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, records []entity.NewHospital) ([]entity.Hospital, error) {
	args := m.Called(ctx, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Hospital), args.Error(1)
}

func (m *MockStore) InsertColdEmail(ctx context.Context, audit entity.ColdEmail) error {
	return m.Called(ctx, audit).Error(0)
}

type stubProvider struct {
	store HospitalStore
	err   error
}

func (p stubProvider) GetOrCreate(context.Context) (HospitalStore, error) {
	return p.store, p.err
}

func updates(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	raw := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestUpdateHospital_WritesRatingAndScore(t *testing.T) {
	store := new(MockStore)
	rating := 3
	store.On("Update", mock.Anything, entity.Patch{ManualRating: &rating}, []string{"h1"}).
		Return([]entity.Hospital{{ID: "h1", ManualRating: 3, Score: 60}}, nil).Once()

	uc := NewUpdateHospitalUseCase(stubProvider{store: store})
	row, err := uc.Execute(context.Background(), UpdateHospitalInput{ID: "h1", Updates: updates(t, `{"manual_rating":3}`)})

	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 60.0, row.Score)
	store.AssertExpectations(t)
}

func TestUpdateHospital_NoMatch(t *testing.T) {
	store := new(MockStore)
	store.On("Update", mock.Anything, mock.Anything, []string{"missing"}).Return([]entity.Hospital{}, nil)

	row, err := NewUpdateHospitalUseCase(stubProvider{store: store}).
		Execute(context.Background(), UpdateHospitalInput{ID: "missing", Updates: updates(t, `{"city":"Leeds"}`)})

	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestUpdateHospital_Errors(t *testing.T) {
	cfgErr := &ConfigError{Setting: "DATABASE_URL", Remediation: "set it"}

	tests := []struct {
		name     string
		provider stubProvider
		input    UpdateHospitalInput
		check    func(error) bool
	}{
		{"missing id", stubProvider{}, UpdateHospitalInput{Updates: map[string]json.RawMessage{"city": []byte(`"x"`)}}, IsValidationError},
		{"no updates", stubProvider{}, UpdateHospitalInput{ID: "h1"}, IsValidationError},
		{"score", stubProvider{}, UpdateHospitalInput{ID: "h1", Updates: map[string]json.RawMessage{"score": []byte(`10`)}}, IsValidationError},
		{"unconfigured", stubProvider{err: cfgErr}, UpdateHospitalInput{ID: "h1", Updates: map[string]json.RawMessage{"city": []byte(`"x"`)}}, IsConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUpdateHospitalUseCase(tt.provider).Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestUpdateHospital_StoreFailure(t *testing.T) {
	store := new(MockStore)
	store.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := NewUpdateHospitalUseCase(stubProvider{store: store}).
		Execute(context.Background(), UpdateHospitalInput{ID: "h1", Updates: map[string]json.RawMessage{"city": []byte(`"x"`)}})

	assert.True(t, IsStoreError(err))
	assert.ErrorContains(t, err, "connection reset")
}
