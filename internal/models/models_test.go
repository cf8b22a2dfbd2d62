package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterviewTransitions(t *testing.T) {
	cases := []struct {
		from, to InterviewStatus
		want     bool
	}{
		{InterviewStatusScheduled, InterviewStatusConfirmed, true},
		{InterviewStatusScheduled, InterviewStatusScheduled, true},
		{InterviewStatusConfirmed, InterviewStatusScheduled, false},
		{InterviewStatusConfirmed, InterviewStatusCompleted, true},
		{InterviewStatusConfirmed, InterviewStatusCancelled, true},
		{InterviewStatusCompleted, InterviewStatusCancelled, false},
		{InterviewStatusCancelled, InterviewStatusConfirmed, false},
		{InterviewStatusScheduled, "rescheduled", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestApplicationStatusGroups(t *testing.T) {
	assert.True(t, ApplicationStatusSubmitted.Pending())
	assert.True(t, ApplicationStatusUnderReview.Pending())
	assert.False(t, ApplicationStatusApproved.Pending())
	assert.True(t, ApplicationStatusApproved.Decided())
	assert.True(t, ApplicationStatusRejected.Decided())
	assert.False(t, ApplicationStatus("archived").Valid())
}

func TestMedicalRecordOverdue(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, MedicalRecord{NextDueDate: &past}.Overdue(now))
	assert.False(t, MedicalRecord{NextDueDate: &future}.Overdue(now))
	assert.False(t, MedicalRecord{}.Overdue(now))

	animal := &Animal{Vaccinated: true, Sterilized: true}
	assert.False(t, animal.FullyCertified())
	animal.Microchipped = true
	assert.True(t, animal.FullyCertified())
}

func TestClaimsRoles(t *testing.T) {
	var nilClaims *JWTClaims
	assert.False(t, nilClaims.IsStaff())
	assert.False(t, nilClaims.IsAdmin())
	assert.True(t, (&JWTClaims{Role: RoleVolunteer}).IsStaff())
	assert.False(t, (&JWTClaims{Role: RoleCandidate}).IsStaff())
	assert.True(t, (&JWTClaims{Role: RoleAdmin}).IsAdmin())
}
