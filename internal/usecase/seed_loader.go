package usecase

import (
	"encoding/json"
	"fmt"
	"os"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"
)

// LoadSeedFile reads a JSON array of flights
func LoadSeedFile(path string) ([]entity.FlightInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var inputs []entity.FlightInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("%w: seed file %s is not a JSON array of flights: %v", repository.ErrValidation, path, err)
	}
	return inputs, nil
}
