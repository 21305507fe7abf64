package permissions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quickassist/permissions"
	"quickassist/shared/constant"
)

func TestAllowedActions(t *testing.T) {
	rules := permissions.Get()
	assert.NotNil(t, rules)

	tests := []struct {
		name   string
		role   string
		status string
		paid   bool
		rated  bool
		want   []string
	}{
		{
			name:   "provider on pending booking",
			role:   constant.RoleProvider,
			status: "PENDING",
			want:   []string{"accept", "decline"},
		},
		{
			name:   "provider on accepted booking",
			role:   constant.RoleProvider,
			status: "ACCEPTED",
			want:   []string{"start_job"},
		},
		{
			name:   "provider on in-progress booking",
			role:   constant.RoleProvider,
			status: "IN_PROGRESS",
			want:   []string{"complete_job"},
		},
		{
			name:   "customer on completed unpaid booking",
			role:   constant.RoleCustomer,
			status: "COMPLETED",
			want:   []string{"pay"},
		},
		{
			name:   "customer on completed paid unrated booking",
			role:   constant.RoleCustomer,
			status: "COMPLETED",
			paid:   true,
			want:   []string{"rate"},
		},
		{
			name:   "customer on completed paid rated booking",
			role:   constant.RoleCustomer,
			status: "COMPLETED",
			paid:   true,
			rated:  true,
			want:   nil,
		},
		{
			name:   "customer on pending booking",
			role:   constant.RoleCustomer,
			status: "PENDING",
			want:   nil,
		},
		{
			name:   "provider on completed booking",
			role:   constant.RoleProvider,
			status: "COMPLETED",
			want:   nil,
		},
		{
			name:   "cancelled booking offers nothing",
			role:   constant.RoleProvider,
			status: "CANCELLED",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.AllowedActions(tt.role, tt.status, tt.paid, tt.rated)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	rules := permissions.Get()

	assert.True(t, rules.Allowed("rate", constant.RoleCustomer, "COMPLETED", true, false))
	assert.False(t, rules.Allowed("rate", constant.RoleCustomer, "COMPLETED", false, false))
	assert.False(t, rules.Allowed("rate", constant.RoleCustomer, "COMPLETED", true, true))
	assert.False(t, rules.Allowed("start_job", constant.RoleCustomer, "ACCEPTED", false, false))
}
