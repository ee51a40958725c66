package store

import (
	"context"
	"time"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/pkg/errors"
	"contract-ledger-service/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const insertBatchSize = 500

// contractRow maps a contract onto the contracts table.
type contractRow struct {
	ContractNumber   string          `gorm:"column:contract_number;primaryKey;type:varchar(64)"`
	AdditionalNumber string          `gorm:"column:additional_number;type:varchar(64)"`
	TaxID            string          `gorm:"column:tax_id;type:varchar(16);index"`
	NationalID       string          `gorm:"column:national_id;type:varchar(16);index"`
	Passport         string          `gorm:"column:passport;type:varchar(16);index"`
	CompanyName      string          `gorm:"column:company_name;type:varchar(255);not null"`
	District         string          `gorm:"column:district;type:varchar(128);index"`
	Status           string          `gorm:"column:status;type:varchar(16);index"`
	NeedsReview      bool            `gorm:"column:needs_review"`
	ContractDate     *time.Time      `gorm:"column:contract_date"`
	CompletionDate   *time.Time      `gorm:"column:completion_date"`
	ContractAmount   decimal.Decimal `gorm:"column:contract_amount;type:decimal(20,2)"`
	InitialPayment   decimal.Decimal `gorm:"column:initial_payment;type:decimal(20,2)"`
	RemainingAmount  decimal.Decimal `gorm:"column:remaining_amount;type:decimal(20,2)"`
	PeriodPayment    decimal.Decimal `gorm:"column:period_payment;type:decimal(20,2)"`
	PaymentTerms     string          `gorm:"column:payment_terms;type:varchar(64)"`
	PaymentPeriod    int             `gorm:"column:payment_period"`
	AdvancePercent   decimal.Decimal `gorm:"column:advance_percent;type:decimal(7,4)"`
	BatchID          string          `gorm:"column:batch_id;type:uuid;index"`
	CreatedAt        time.Time
}

func (contractRow) TableName() string { return "contracts" }

// paymentRow maps a payment fact onto the payment_facts table.
type paymentRow struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	PaymentDate    time.Time       `gorm:"column:payment_date;index"`
	TaxID          string          `gorm:"column:tax_id;type:varchar(16);index"`
	NationalID     string          `gorm:"column:national_id;type:varchar(16)"`
	Passport       string          `gorm:"column:passport;type:varchar(16)"`
	AmountDebit    decimal.Decimal `gorm:"column:amount_debit;type:decimal(20,2)"`
	AmountCredit   decimal.Decimal `gorm:"column:amount_credit;type:decimal(20,2)"`
	District       string          `gorm:"column:district;type:varchar(128)"`
	Description    string          `gorm:"column:description;type:text"`
	PaymentType    string          `gorm:"column:payment_type;type:varchar(64)"`
	Matched        bool            `gorm:"column:matched;index"`
	ContractNumber string          `gorm:"column:contract_number;type:varchar(64);index"`
	BatchID        string          `gorm:"column:batch_id;type:uuid;index"`
	CreatedAt      time.Time
}

func (paymentRow) TableName() string { return "payment_facts" }

// scheduleRow maps an obligation period onto the payment_schedules table.
type scheduleRow struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	ContractNumber string          `gorm:"column:contract_number;type:varchar(64);index"`
	Year           int             `gorm:"column:year;index"`
	Period         int             `gorm:"column:period"`
	Granularity    string          `gorm:"column:granularity;type:varchar(8)"`
	DueDate        time.Time       `gorm:"column:due_date;index"`
	PlannedAmount  decimal.Decimal `gorm:"column:planned_amount;type:decimal(20,2)"`
	ActualAmount   decimal.Decimal `gorm:"column:actual_amount;type:decimal(20,2)"`
	DebtAmount     decimal.Decimal `gorm:"column:debt_amount;type:decimal(20,2)"`
	IsOverdue      bool            `gorm:"column:is_overdue;index"`
	BatchID        string          `gorm:"column:batch_id;type:uuid;index"`
	CreatedAt      time.Time
}

func (scheduleRow) TableName() string { return "payment_schedules" }

// batchRow records one completed ingestion batch.
type batchRow struct {
	ID            string    `gorm:"column:id;primaryKey;type:uuid"`
	IngestedAt    time.Time `gorm:"column:ingested_at"`
	ContractCount int       `gorm:"column:contract_count"`
	PaymentCount  int       `gorm:"column:payment_count"`
	ScheduleCount int       `gorm:"column:schedule_count"`
}

func (batchRow) TableName() string { return "ingest_batches" }

// PostgresStore persists the population in PostgreSQL via GORM.
type PostgresStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// InitDB opens the PostgreSQL connection, configures the pool and migrates
// the schema. dsn format:
// "host=localhost user=postgres password=... dbname=ledger port=5432 sslmode=disable"
func InitDB(dsn string, debug bool) (*gorm.DB, error) {
	logMode := gormlogger.Silent
	if debug {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, errors.StorageError(errors.CodeConnectionFailed, "open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.StorageError(errors.CodeConnectionFailed, "pool", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&contractRow{}, &paymentRow{}, &scheduleRow{}, &batchRow{}); err != nil {
		return nil, errors.StorageError(errors.CodeMigrationFailed, "auto_migrate", err)
	}

	return db, nil
}

// NewPostgresStore wraps an initialized GORM handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("postgres_store"),
	}
}

// ReplaceAll deletes the previous population and inserts the batch inside one
// transaction, so readers either see the old population or the new one.
func (s *PostgresStore) ReplaceAll(ctx context.Context, batch *Batch) error {
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&scheduleRow{}, &paymentRow{}, &contractRow{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}

		if len(batch.Contracts) > 0 {
			rows := make([]contractRow, 0, len(batch.Contracts))
			for _, c := range batch.Contracts {
				rows = append(rows, toContractRow(c, batch.ID))
			}
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(batch.Payments) > 0 {
			rows := make([]paymentRow, 0, len(batch.Payments))
			for _, p := range batch.Payments {
				rows = append(rows, toPaymentRow(p, batch.ID))
			}
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(batch.Schedules) > 0 {
			rows := make([]scheduleRow, 0, len(batch.Schedules))
			for _, sch := range batch.Schedules {
				rows = append(rows, toScheduleRow(sch, batch.ID))
			}
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return err
			}
		}

		return tx.Create(&batchRow{
			ID:            batch.ID,
			IngestedAt:    batch.IngestedAt,
			ContractCount: len(batch.Contracts),
			PaymentCount:  len(batch.Payments),
			ScheduleCount: len(batch.Schedules),
		}).Error
	})
	if err != nil {
		return errors.StorageError(errors.CodeSwapFailed, "replace_all", err).
			WithContext("batch_id", batch.ID)
	}

	s.logger.WithFields(logger.Fields{
		"batch_id":  batch.ID,
		"contracts": len(batch.Contracts),
		"payments":  len(batch.Payments),
		"schedules": len(batch.Schedules),
		"duration":  time.Since(start).String(),
	}).Info("Population replaced")

	return nil
}

func (s *PostgresStore) Contracts(ctx context.Context) ([]*models.Contract, error) {
	var rows []contractRow
	if err := s.db.WithContext(ctx).Order("contract_number").Find(&rows).Error; err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "contracts", err)
	}
	out := make([]*models.Contract, 0, len(rows))
	for i := range rows {
		out = append(out, fromContractRow(&rows[i]))
	}
	return out, nil
}

func (s *PostgresStore) Payments(ctx context.Context) ([]*models.PaymentFact, error) {
	var rows []paymentRow
	if err := s.db.WithContext(ctx).Order("payment_date, id").Find(&rows).Error; err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "payments", err)
	}
	out := make([]*models.PaymentFact, 0, len(rows))
	for i := range rows {
		out = append(out, fromPaymentRow(&rows[i]))
	}
	return out, nil
}

func (s *PostgresStore) Schedules(ctx context.Context) ([]*models.PaymentSchedule, error) {
	var rows []scheduleRow
	if err := s.db.WithContext(ctx).Order("contract_number, year, period").Find(&rows).Error; err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "schedules", err)
	}
	out := make([]*models.PaymentSchedule, 0, len(rows))
	for i := range rows {
		out = append(out, fromScheduleRow(&rows[i]))
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toContractRow(c *models.Contract, batchID string) contractRow {
	return contractRow{
		ContractNumber:   c.ContractNumber,
		AdditionalNumber: c.AdditionalNumber,
		TaxID:            c.TaxID,
		NationalID:       c.NationalID,
		Passport:         c.Passport,
		CompanyName:      c.CompanyName,
		District:         c.District,
		Status:           string(c.Status),
		NeedsReview:      c.NeedsReview,
		ContractDate:     optionalTime(c.ContractDate),
		CompletionDate:   optionalTime(c.CompletionDate),
		ContractAmount:   c.ContractAmount,
		InitialPayment:   c.InitialPayment,
		RemainingAmount:  c.RemainingAmount,
		PeriodPayment:    c.PeriodPayment,
		PaymentTerms:     c.PaymentTerms,
		PaymentPeriod:    c.PaymentPeriod,
		AdvancePercent:   c.AdvancePercent,
		BatchID:          batchID,
	}
}

func fromContractRow(r *contractRow) *models.Contract {
	return &models.Contract{
		ContractNumber:   r.ContractNumber,
		AdditionalNumber: r.AdditionalNumber,
		TaxID:            r.TaxID,
		NationalID:       r.NationalID,
		Passport:         r.Passport,
		CompanyName:      r.CompanyName,
		District:         r.District,
		Status:           models.ContractStatus(r.Status),
		NeedsReview:      r.NeedsReview,
		ContractDate:     timeOrZero(r.ContractDate),
		CompletionDate:   timeOrZero(r.CompletionDate),
		ContractAmount:   r.ContractAmount,
		InitialPayment:   r.InitialPayment,
		RemainingAmount:  r.RemainingAmount,
		PeriodPayment:    r.PeriodPayment,
		PaymentTerms:     r.PaymentTerms,
		PaymentPeriod:    r.PaymentPeriod,
		AdvancePercent:   r.AdvancePercent,
	}
}

func toPaymentRow(p *models.PaymentFact, batchID string) paymentRow {
	return paymentRow{
		PaymentDate:    p.PaymentDate,
		TaxID:          p.TaxID,
		NationalID:     p.NationalID,
		Passport:       p.Passport,
		AmountDebit:    p.AmountDebit,
		AmountCredit:   p.AmountCredit,
		District:       p.District,
		Description:    p.Description,
		PaymentType:    p.PaymentType,
		Matched:        p.Matched,
		ContractNumber: p.ContractNumber,
		BatchID:        batchID,
	}
}

func fromPaymentRow(r *paymentRow) *models.PaymentFact {
	return &models.PaymentFact{
		PaymentDate:    r.PaymentDate,
		TaxID:          r.TaxID,
		NationalID:     r.NationalID,
		Passport:       r.Passport,
		AmountDebit:    r.AmountDebit,
		AmountCredit:   r.AmountCredit,
		District:       r.District,
		Description:    r.Description,
		PaymentType:    r.PaymentType,
		Matched:        r.Matched,
		ContractNumber: r.ContractNumber,
	}
}

func toScheduleRow(s *models.PaymentSchedule, batchID string) scheduleRow {
	return scheduleRow{
		ContractNumber: s.ContractNumber,
		Year:           s.Year,
		Period:         s.Period,
		Granularity:    string(s.Granularity),
		DueDate:        s.DueDate,
		PlannedAmount:  s.PlannedAmount,
		ActualAmount:   s.ActualAmount,
		DebtAmount:     s.DebtAmount,
		IsOverdue:      s.IsOverdue,
		BatchID:        batchID,
	}
}

func fromScheduleRow(r *scheduleRow) *models.PaymentSchedule {
	return &models.PaymentSchedule{
		ContractNumber: r.ContractNumber,
		Year:           r.Year,
		Period:         r.Period,
		Granularity:    models.Granularity(r.Granularity),
		DueDate:        r.DueDate,
		PlannedAmount:  r.PlannedAmount,
		ActualAmount:   r.ActualAmount,
		DebtAmount:     r.DebtAmount,
		IsOverdue:      r.IsOverdue,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
