package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRow is one committed ledger event.
type EventRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq          uint64    `gorm:"uniqueIndex"`
	Network      string    `gorm:"size:64;index"`
	Type         string    `gorm:"size:64;index"`
	Account      string    `gorm:"size:42;index"`
	Counterparty string    `gorm:"size:42;index"`
	Attributes   string    `gorm:"type:text"`
	Timestamp    int64     `gorm:"index"`
	CreatedAt    time.Time
}

func (EventRow) TableName() string { return "farm_events" }

// MarketSnapshot records the market at a point in time.
type MarketSnapshot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Network     string    `gorm:"size:64;index"`
	PoolUnits   string    `gorm:"size:80"`
	HeldValue   string    `gorm:"size:80"`
	Initialized bool
	TakenAt     time.Time `gorm:"index"`
}

func (MarketSnapshot) TableName() string { return "farm_market_snapshots" }

// AutoMigrate creates or updates the journal tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRow{}, &MarketSnapshot{})
}
