package entitlements

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		status    Status
		expiresAt *time.Time
		want      bool
	}{
		{name: "active without expiry", status: StatusActive, want: true},
		{name: "active with future expiry", status: StatusActive, expiresAt: &future, want: true},
		{name: "active expiring now", status: StatusActive, expiresAt: &now, want: true},
		{name: "active with past expiry", status: StatusActive, expiresAt: &past, want: false},
		{name: "suspended without expiry", status: StatusSuspended, want: false},
		{name: "suspended with future expiry", status: StatusSuspended, expiresAt: &future, want: false},
		{name: "unknown status", status: Status("EXPIRED"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUsable(tt.status, tt.expiresAt, now))
			e := &SkillEntitlement{Status: tt.status, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, e.UsableAt(now))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusSuspended.Valid())
	assert.False(t, Status("EXPIRED").Valid())
}

func TestReasonMessage(t *testing.T) {
	assert.Equal(t, "no package configured for this feature type", ReasonNoPackage.Message())
	assert.Equal(t, "organization not linked to a billing customer", ReasonNoCustomerLink.Message())
	assert.Equal(t, "no active license", ReasonNoActiveLicense.Message())
	assert.Equal(t, "free feature type", ReasonFreeFeature.Message())
	assert.Equal(t, "custom", Reason("custom").Message())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrEntitlementNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("revoke: %w", ErrPackageNotFound)))
	assert.False(t, IsNotFound(errors.New("connection refused")))
	assert.False(t, IsNotFound(ErrInvalidRequest))
}
