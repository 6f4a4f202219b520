package store

import (
	"time"

	"golang-move-import-service/internal/models"

	"github.com/shopspring/decimal"
)

// Company owns the chart of accounts and the journals
type Company struct {
	ID           models.ID `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	CurrencyCode string    `gorm:"size:3;not null;default:'EUR'" json:"currency_code"`
}

type Account struct {
	ID         models.ID `gorm:"primaryKey" json:"id"`
	CompanyID  models.ID `gorm:"index;not null" json:"company_id"`
	Code       string    `gorm:"size:64;index;not null" json:"code"`
	Name       string    `gorm:"size:128" json:"name"`
	Reconcile  bool      `gorm:"not null;default:false" json:"reconcile"`
	Deprecated bool      `gorm:"not null;default:false" json:"deprecated"`
}

type Journal struct {
	ID        models.ID `gorm:"primaryKey" json:"id"`
	CompanyID models.ID `gorm:"index;not null" json:"company_id"`
	Code      string    `gorm:"size:16;index;not null" json:"code"`
	Name      string    `gorm:"size:128" json:"name"`
}

// Partner without a company is shared by all companies. Only commercial
// entities (no parent) with a reference are importable.
type Partner struct {
	ID        models.ID  `gorm:"primaryKey" json:"id"`
	CompanyID *models.ID `gorm:"index" json:"company_id,omitempty"`
	Ref       string     `gorm:"size:64;index" json:"ref"`
	Name      string     `gorm:"size:128" json:"name"`
	ParentID  *models.ID `gorm:"index" json:"parent_id,omitempty"`
}

type AnalyticAccount struct {
	ID        models.ID  `gorm:"primaryKey" json:"id"`
	CompanyID *models.ID `gorm:"index" json:"company_id,omitempty"`
	Code      string     `gorm:"size:64;index" json:"code"`
	Name      string     `gorm:"size:128" json:"name"`
}

type Move struct {
	ID          models.ID  `gorm:"primaryKey" json:"id"`
	CompanyID   models.ID  `gorm:"index;not null" json:"company_id"`
	JournalID   models.ID  `gorm:"index;not null" json:"journal_id"`
	Name        string     `gorm:"size:64" json:"name"`
	Ref         string     `gorm:"size:128" json:"ref"`
	Date        time.Time  `gorm:"type:date;not null" json:"date"`
	State       string     `gorm:"size:16;not null;default:'draft'" json:"state"`
	ImportBatch string     `gorm:"size:36;index" json:"import_batch"`
	Lines       []MoveLine `gorm:"foreignKey:MoveID" json:"lines"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type MoveLine struct {
	ID                   models.ID       `gorm:"primaryKey" json:"id"`
	MoveID               models.ID       `gorm:"index;not null" json:"move_id"`
	AccountID            models.ID       `gorm:"index;not null" json:"account_id"`
	PartnerID            *models.ID      `gorm:"index" json:"partner_id,omitempty"`
	Name                 string          `gorm:"size:256" json:"name"`
	Debit                decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	AnalyticDistribution string          `gorm:"type:text" json:"analytic_distribution,omitempty"`
	ImportReconcile      string          `gorm:"size:64;index" json:"import_reconcile,omitempty"`
	ImportExternalID     string          `gorm:"size:64;uniqueIndex" json:"import_external_id"`
	ReconciliationID     *models.ID      `gorm:"index" json:"reconciliation_id,omitempty"`
}

// Reconciliation links lines that settle each other
type Reconciliation struct {
	ID        models.ID `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AllModels lists the tables created by Migrate
func AllModels() []interface{} {
	return []interface{}{
		&Company{},
		&Account{},
		&Journal{},
		&Partner{},
		&AnalyticAccount{},
		&Move{},
		&MoveLine{},
		&Reconciliation{},
	}
}
