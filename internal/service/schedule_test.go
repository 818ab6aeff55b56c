package service

import (
	"testing"
	"time"

	"mpola/internal/domain"
	"mpola/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlanComputesFeeAndTotal(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)

	sched, receivers, err := f.scheduleSvc.CreatePlan(customer.ID, CreatePlanInput{
		Title:     "Family support",
		Frequency: domain.FrequencyMonthly,
		Receivers: []ReceiverInput{
			{Name: "A", Phone: "772000010", CountryCode: "+256", AmountPerInstallment: dec("5000.00"), NumberOfInstallments: 2},
			{Name: "B", Phone: "772000011", CountryCode: "+256", AmountPerInstallment: dec("3000.00"), NumberOfInstallments: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, receivers, 2)

	// subtotal 16000, fee 1.5% = 240, total 16240.00
	assert.True(t, sched.SubtotalAmount.Equal(dec("16000.00")), "subtotal %s", sched.SubtotalAmount)
	assert.True(t, sched.ProcessingFee.Equal(dec("240.00")), "fee %s", sched.ProcessingFee)
	assert.True(t, sched.TotalAmount.Equal(dec("16240.00")), "total %s", sched.TotalAmount)
	assert.Equal(t, "UGX", sched.Currency)
	assert.Equal(t, domain.ScheduleStatusActive, sched.Status)
	require.NotNil(t, sched.NextPaymentDate)
}

func TestCreatePlanRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)

	cases := []struct {
		name string
		in   CreatePlanInput
	}{
		{"missing title", CreatePlanInput{Receivers: []ReceiverInput{{Name: "A", Phone: "1", CountryCode: "+256", AmountPerInstallment: dec("10"), NumberOfInstallments: 1}}}},
		{"no receivers", CreatePlanInput{Title: "x"}},
		{"bad frequency", CreatePlanInput{Title: "x", Frequency: "fortnightly-ish", Receivers: []ReceiverInput{{Name: "A", Phone: "1", CountryCode: "+256", AmountPerInstallment: dec("10"), NumberOfInstallments: 1}}}},
		{"zero amount", CreatePlanInput{Title: "x", Receivers: []ReceiverInput{{Name: "A", Phone: "1", CountryCode: "+256", AmountPerInstallment: dec("0"), NumberOfInstallments: 1}}}},
		{"zero installments", CreatePlanInput{Title: "x", Receivers: []ReceiverInput{{Name: "A", Phone: "1", CountryCode: "+256", AmountPerInstallment: dec("10"), NumberOfInstallments: 0}}}},
		{"duplicate phones", CreatePlanInput{Title: "x", Receivers: []ReceiverInput{
			{Name: "A", Phone: "772000012", CountryCode: "+256", AmountPerInstallment: dec("10"), NumberOfInstallments: 1},
			{Name: "B", Phone: "772000012", CountryCode: "+256", AmountPerInstallment: dec("10"), NumberOfInstallments: 1},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.scheduleSvc.CreatePlan(customer.ID, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// nothing persisted by any rejected attempt
	var n int64
	require.NoError(t, f.db.Model(&models.PaymentSchedule{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestIsPaymentDueInitializesMissingNextDate(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 3)
	sched.NextPaymentDate = nil
	sched.LastPaymentDate = nil
	require.NoError(t, f.db.Model(sched).Updates(map[string]interface{}{
		"next_payment_date": nil,
		"last_payment_date": nil,
	}).Error)
	sched.StartDate = f.clock.Add(-time.Hour)

	due, err := f.scheduleSvc.IsPaymentDue(sched)
	require.NoError(t, err)
	assert.False(t, due, "start one hour ago with daily cadence is not due yet")
	require.NotNil(t, sched.NextPaymentDate)

	// the lazily computed date is persisted, not just held in memory
	reloaded, err := f.schedules.GetByID(sched.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.NextPaymentDate)
	assert.WithinDuration(t, sched.StartDate.Add(24*time.Hour), *reloaded.NextPaymentDate, time.Second)
}

func TestUpdatePaymentDatesAdvancesCadence(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 3)

	require.NoError(t, f.scheduleSvc.UpdatePaymentDates(sched))
	require.NotNil(t, sched.LastPaymentDate)
	require.NotNil(t, sched.NextPaymentDate)
	assert.Equal(t, f.clock, *sched.LastPaymentDate)
	assert.Equal(t, f.clock.Add(24*time.Hour), *sched.NextPaymentDate)

	due, err := f.scheduleSvc.IsPaymentDue(sched)
	require.NoError(t, err)
	assert.False(t, due)

	f.advance(25 * time.Hour)
	due, err = f.scheduleSvc.IsPaymentDue(sched)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestUpdateDetailsPatchesOnlyMutableFields(t *testing.T) {
	f := newFixture(t)
	sched, _ := f.seedPlan(t, "100.00", 3)

	paused := domain.ScheduleStatusPaused
	title := "Renamed"
	require.NoError(t, f.scheduleSvc.UpdateDetails(sched, &paused, &title, nil))

	reloaded, err := f.schedules.GetByID(sched.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPaused, reloaded.Status)
	assert.Equal(t, "Renamed", reloaded.Title)
	assert.True(t, reloaded.TotalAmount.Equal(sched.TotalAmount))

	bad := "archived"
	err = f.scheduleSvc.UpdateDetails(sched, &bad, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
