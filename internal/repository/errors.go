package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Not-found sentinels wrap sql.ErrNoRows so callers may match either.
var (
	ErrApplicationNotFound = fmt.Errorf("application: %w", sql.ErrNoRows)
	ErrSlotNotFound        = fmt.Errorf("interview slot: %w", sql.ErrNoRows)
	ErrInterviewNotFound   = fmt.Errorf("interview: %w", sql.ErrNoRows)
	ErrAnimalNotFound      = fmt.Errorf("animal: %w", sql.ErrNoRows)
	ErrReportNotFound      = fmt.Errorf("post-adoption report: %w", sql.ErrNoRows)
	ErrAgreementNotFound   = fmt.Errorf("agreement: %w", sql.ErrNoRows)
)

// State-rule violations detected inside a transition.
var (
	ErrActiveApplicationExists = errors.New("an active application already exists for this candidate and animal")
	ErrApplicationDecided      = errors.New("application is already approved or rejected")
	ErrApplicationNotApproved  = errors.New("application is not approved")
	ErrSlotUnavailable         = errors.New("interview slot is not available")
	ErrSlotExpired             = errors.New("interview slot has expired")
	ErrSlotNotBound            = errors.New("interview slot is not booked for this application")
	ErrSlotBooked              = errors.New("interview slot is booked")
	ErrLiveInterviewExists     = errors.New("application already has a scheduled interview")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrAnimalUnavailable       = errors.New("animal is not available for adoption")
	ErrAgreementExists         = errors.New("agreement already exists for this application")
	ErrInterviewsChanged       = errors.New("interviews changed concurrently")
)

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
