package usecase

import (
	"context"
	"encoding/json"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

type UpdateHospitalInput struct {
	ID      string                     `json:"id"`
	Updates map[string]json.RawMessage `json:"updates"`
}

// UpdateHospitalUseCase backs PATCH /hospitals: one direct store update, no cache.
type UpdateHospitalUseCase struct {
	Stores StoreProvider
}

func NewUpdateHospitalUseCase(stores StoreProvider) *UpdateHospitalUseCase {
	return &UpdateHospitalUseCase{Stores: stores}
}

// Execute returns the first updated row, or nil when no row matched the id.
func (uc *UpdateHospitalUseCase) Execute(ctx context.Context, input UpdateHospitalInput) (*entity.Hospital, error) {
	if input.ID == "" || len(input.Updates) == 0 {
		return nil, ValidationError{Message: "Missing id or updates"}
	}

	patch, err := entity.PatchFromJSON(input.Updates)
	if err != nil {
		return nil, AsValidationError(err)
	}

	store, err := uc.Stores.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := store.Update(ctx, patch, []string{input.ID})
	if err != nil {
		return nil, &StoreError{Op: "update hospital", Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
