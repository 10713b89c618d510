// Package cardcache persists decrypted hands keyed by (table, owner), so a
// reconnect inside the same round does not re-run the grant/decrypt flow.
// Entries are invalidated by a fingerprint of the current encrypted handles.
package cardcache

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Liars-Bar/Liars-bar/internal/confidential"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

type Entry struct {
	TableID     uint64 `gorm:"primaryKey;autoIncrement:false"`
	Owner       string `gorm:"primaryKey;size:64"`
	Fingerprint string
	Cards       string // JSON [{"shape":n,"value":n}]
	UpdatedAt   time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

var _ confidential.CacheStore = (*Store)(nil)

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db, log: log.Named("cardcache")}, nil
}

// Load returns the cached hand when the stored fingerprint matches the one
// computed from the current handles. A mismatch means a reshuffle happened;
// the stale entry is evicted.
func (s *Store) Load(tableID uint64, owner ledger.Address, hand []confidential.EncryptedCard) ([]confidential.Card, bool) {
	want := confidential.Fingerprint(hand)

	var e Entry
	err := s.db.First(&e, "table_id = ? AND owner = ?", tableID, string(owner)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("cache lookup failed", zap.Error(err))
		return nil, false
	}
	if e.Fingerprint != want {
		_ = s.Clear(tableID, owner)
		return nil, false
	}

	var cards []confidential.Card
	if err := json.Unmarshal([]byte(e.Cards), &cards); err != nil {
		_ = s.Clear(tableID, owner)
		return nil, false
	}
	return cards, true
}

func (s *Store) Save(tableID uint64, owner ledger.Address, hand []confidential.EncryptedCard, cards []confidential.Card) error {
	raw, err := json.Marshal(cards)
	if err != nil {
		return err
	}
	e := Entry{
		TableID:     tableID,
		Owner:       string(owner),
		Fingerprint: confidential.Fingerprint(hand),
		Cards:       string(raw),
		UpdatedAt:   time.Now(),
	}
	return s.db.Save(&e).Error
}

func (s *Store) Clear(tableID uint64, owner ledger.Address) error {
	return s.db.Delete(&Entry{}, "table_id = ? AND owner = ?", tableID, string(owner)).Error
}
