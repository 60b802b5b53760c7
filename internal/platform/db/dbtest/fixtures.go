package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/tool"
	"github.com/ptamhub/billing/pkg/types"
)

func Profile(t testing.TB, gdb *gorm.DB, role types.Role) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:    tool.GenerateUUIDV7(),
		Name:  "Maria Silva",
		Email: "maria@example.com",
		CPF:   "529.982.247-25",
		Phone: "11999990000",
		Role:  role,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func Plan(t testing.TB, gdb *gorm.DB, planType types.PlanType, price int64, included int) *models.Plan {
	t.Helper()
	p := &models.Plan{
		ID:              tool.GenerateUUIDV7(),
		Name:            string(planType),
		Type:            planType,
		Price:           price,
		IncludedReports: included,
		Active:          true,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

// ActivateGateway flips the gateway switch to name.
func ActivateGateway(t testing.TB, gdb *gorm.DB, name string) {
	t.Helper()
	require.NoError(t, gdb.Model(&models.PaymentGateway{}).Where("1 = 1").Update("is_active", false).Error)
	require.NoError(t, gdb.Model(&models.PaymentGateway{}).Where("name = ?", name).Update("is_active", true).Error)
}
