package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
)

// Aliases so handlers can match validation failures with errors.Is against either package.
var (
	ErrInvalidUUID      = apperrors.ErrInvalidUUID
	ErrInvalidDateRange = apperrors.ErrInvalidDateRange
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if id == "" {
		return apperrors.ErrEmptyID
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}
