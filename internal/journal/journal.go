// Package journal persists completed trades to PostgreSQL for later
// analysis. The journal is optional: a nil *Journal is a no-op sink, so
// the trading path never depends on the database being up.
package journal

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Option defines the PostgreSQL connection settings. ConnString, when
// set, wins over the individual fields.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
}

// Entry is one journaled round trip.
type Entry struct {
	ID         uint            `gorm:"primaryKey"`
	Symbol     string          `gorm:"index;size:32"`
	Side       string          `gorm:"size:8"`
	EntryPrice decimal.Decimal `gorm:"type:numeric"`
	ExitPrice  decimal.Decimal `gorm:"type:numeric"`
	Quantity   decimal.Decimal `gorm:"type:numeric"`
	PnL        decimal.Decimal `gorm:"type:numeric"`
	Fees       decimal.Decimal `gorm:"type:numeric"`
	Reason     string          `gorm:"size:64"`
	EntryTime  time.Time
	ExitTime   time.Time
	CreatedAt  time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (Entry) TableName() string {
	return "trade_journal"
}

// Journal is a thin gorm wrapper around the trade journal table.
type Journal struct {
	db *gorm.DB
}

// Open connects and migrates the journal table.
func Open(opt Option) (*Journal, error) {
	dsn, err := opt.dsn()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open journal database")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, "migrate trade journal")
	}
	return &Journal{db: db}, nil
}

// Record persists one completed trade. Nil-safe.
func (j *Journal) Record(entry Entry) error {
	if j == nil {
		return nil
	}
	if err := j.db.Create(&entry).Error; err != nil {
		return errors.Wrap(err, "record journal entry")
	}
	return nil
}

// Recent returns the newest entries for a symbol, most recent first.
func (j *Journal) Recent(symbol string, limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	var entries []Entry
	err := j.db.
		Where("symbol = ?", symbol).
		Order("exit_time DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "query journal entries")
	}
	return entries, nil
}

// Close releases the connection pool. Nil-safe.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FromTrade maps a completed round trip onto a journal entry.
func FromTrade(symbol string, side model.Side, entryPrice, exitPrice, quantity, pnl, fees decimal.Decimal, entryTime, exitTime time.Time, reason string) Entry {
	return Entry{
		Symbol:     symbol,
		Side:       side.String(),
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   quantity,
		PnL:        pnl,
		Fees:       fees,
		Reason:     reason,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
	}
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}
	if opt.Database == "" {
		return "", errors.New("journal: database name required")
	}

	host := opt.Host
	if host == "" {
		host = defaultHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + opt.Database,
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String(), nil
}
