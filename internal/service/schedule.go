package service

import (
	"fmt"
	"strings"
	"time"

	"mpola/internal/domain"
	"mpola/internal/models"
	"mpola/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScheduleService owns a schedule's payment-due timing, date progression and
// plan creation.
type ScheduleService struct {
	db        *gorm.DB
	schedules *repository.ScheduleRepository
	receivers *repository.ReceiverRepository
	feeRate   decimal.Decimal
	currency  string
	now       func() time.Time
}

func NewScheduleService(
	db *gorm.DB,
	schedules *repository.ScheduleRepository,
	receivers *repository.ReceiverRepository,
	feeRate decimal.Decimal,
	currency string,
) *ScheduleService {
	return &ScheduleService{
		db:        db,
		schedules: schedules,
		receivers: receivers,
		feeRate:   feeRate,
		currency:  currency,
		now:       time.Now,
	}
}

type ReceiverInput struct {
	Name                 string
	Phone                string
	CountryCode          string
	AmountPerInstallment decimal.Decimal
	NumberOfInstallments int
}

type CreatePlanInput struct {
	Title       string
	Description string
	Frequency   string
	StartDate   *time.Time
	Receivers   []ReceiverInput
}

// CreatePlan creates a schedule and its receivers in one database
// transaction: any receiver failure rolls back the whole plan, so no partial
// schedules persist. The processing fee is feeRate of the subtotal; the total
// is subtotal plus fee, rounded to 2dp.
func (s *ScheduleService) CreatePlan(customerID uint, in CreatePlanInput) (*models.PaymentSchedule, []models.Receiver, error) {
	if in.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	frequency := in.Frequency
	if frequency == "" {
		frequency = domain.FrequencyMonthly
	}
	if !domain.ValidFrequency(frequency) {
		return nil, nil, fmt.Errorf("%w: unsupported frequency %q", ErrValidation, frequency)
	}
	if len(in.Receivers) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one receiver is required", ErrValidation)
	}

	subtotal := decimal.Zero
	seenPhones := make(map[string]bool, len(in.Receivers))
	for _, r := range in.Receivers {
		phone := strings.TrimSpace(r.Phone)
		if phone == "" || strings.TrimSpace(r.CountryCode) == "" {
			return nil, nil, fmt.Errorf("%w: receiver %q: phone and country code are required", ErrValidation, r.Name)
		}
		if !r.AmountPerInstallment.IsPositive() {
			return nil, nil, fmt.Errorf("%w: receiver %q: amount per installment must be positive", ErrValidation, r.Name)
		}
		if r.NumberOfInstallments < 1 {
			return nil, nil, fmt.Errorf("%w: receiver %q: number of installments must be at least 1", ErrValidation, r.Name)
		}
		if seenPhones[phone] {
			return nil, nil, fmt.Errorf("%w: duplicate phone number %s in schedule", ErrValidation, phone)
		}
		seenPhones[phone] = true
		subtotal = subtotal.Add(r.AmountPerInstallment.Mul(decimal.NewFromInt(int64(r.NumberOfInstallments))))
	}

	fee := subtotal.Mul(s.feeRate)
	total := subtotal.Add(fee).Round(2)

	startDate := s.now()
	if in.StartDate != nil {
		startDate = *in.StartDate
	}
	next := startDate.Add(domain.FrequencyInterval(frequency))

	sched := &models.PaymentSchedule{
		CustomerID:      customerID,
		Title:           in.Title,
		Description:     in.Description,
		Status:          domain.ScheduleStatusActive,
		SubtotalAmount:  subtotal,
		ProcessingFee:   fee.Round(2),
		TotalAmount:     total,
		Currency:        s.currency,
		Frequency:       frequency,
		StartDate:       startDate,
		NextPaymentDate: &next,
	}

	var created []models.Receiver
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.schedules.Create(tx, sched); err != nil {
			return err
		}
		for _, r := range in.Receivers {
			recv := models.Receiver{
				ScheduleID:           sched.ID,
				Name:                 r.Name,
				Phone:                strings.TrimSpace(r.Phone),
				CountryCode:          strings.TrimSpace(r.CountryCode),
				AmountPerInstallment: r.AmountPerInstallment,
				NumberOfInstallments: r.NumberOfInstallments,
			}
			if err := s.receivers.Create(tx, &recv); err != nil {
				return err
			}
			created = append(created, recv)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sched, created, nil
}

// CalculateNextPaymentDate derives the next due time from the last payment
// date, or the start date, or now, plus the frequency interval.
func (s *ScheduleService) CalculateNextPaymentDate(sched *models.PaymentSchedule, from *time.Time) time.Time {
	base := s.now()
	switch {
	case from != nil:
		base = *from
	case sched.LastPaymentDate != nil:
		base = *sched.LastPaymentDate
	case !sched.StartDate.IsZero():
		base = sched.StartDate
	}
	return base.Add(domain.FrequencyInterval(sched.Frequency))
}

// IsPaymentDue reports whether the schedule's next payment time has arrived.
// An unset next payment date is initialized and persisted here, so the first
// read triggers a write.
func (s *ScheduleService) IsPaymentDue(sched *models.PaymentSchedule) (bool, error) {
	if sched.NextPaymentDate == nil {
		next := s.CalculateNextPaymentDate(sched, nil)
		sched.NextPaymentDate = &next
		if err := s.schedules.UpdatePaymentDates(s.db, sched); err != nil {
			return false, err
		}
	}
	return !s.now().Before(*sched.NextPaymentDate), nil
}

// UpdatePaymentDates advances the cadence after a confirmed successful
// disbursement. It must never be called speculatively.
func (s *ScheduleService) UpdatePaymentDates(sched *models.PaymentSchedule) error {
	return s.UpdatePaymentDatesTx(s.db, sched)
}

func (s *ScheduleService) UpdatePaymentDatesTx(tx *gorm.DB, sched *models.PaymentSchedule) error {
	now := s.now()
	sched.LastPaymentDate = &now
	next := now.Add(domain.FrequencyInterval(sched.Frequency))
	sched.NextPaymentDate = &next
	return s.schedules.UpdatePaymentDates(tx, sched)
}

// UpdateDetails patches the mutable schedule fields: status, title and
// description.
func (s *ScheduleService) UpdateDetails(sched *models.PaymentSchedule, status, title, description *string) error {
	if status != nil {
		switch *status {
		case domain.ScheduleStatusActive, domain.ScheduleStatusPaused,
			domain.ScheduleStatusCompleted, domain.ScheduleStatusCancelled:
			sched.Status = *status
		default:
			return fmt.Errorf("%w: invalid status %q", ErrValidation, *status)
		}
	}
	if title != nil {
		sched.Title = *title
	}
	if description != nil {
		sched.Description = *description
	}
	return s.schedules.Update(sched)
}
