package services

import (
	"errors"
	"fmt"

	"github.com/docshare/drive/internal/repository"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidMove      = errors.New("invalid move")
	ErrConflict         = errors.New("conflict")
	ErrExpired          = errors.New("link expired")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrValidation       = errors.New("validation failed")
	ErrTransient        = errors.New("store unavailable")
	ErrIntegrity        = errors.New("integrity violation")
)

var serviceErrors = []error{
	ErrNotFound,
	ErrPermissionDenied,
	ErrInvalidMove,
	ErrConflict,
	ErrExpired,
	ErrInvalidPassword,
	ErrValidation,
	ErrTransient,
	ErrIntegrity,
}

// storeErr converts repository errors into service errors. Errors that already
// carry a service sentinel pass through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range serviceErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrLockConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
