package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
// MaxIdleConns never exceeds MaxOpenConns.
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", classifyPGError(err))
	}
	return nil
}

func (s *pgStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	var rows []schema.Event
	err := s.db.WithContext(ctx).
		Scopes(eventScope(filter)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", classifyPGError(err))
	}

	events := make([]domain.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, toDomainEvent(r))
	}
	return events, nil
}

func (s *pgStore) InsertEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	row := toSchemaEvent(event)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Fights").Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert event %q: %w", event.Name, classifyPGError(err))
	}

	out := toDomainEvent(row)
	return &out, nil
}

func (s *pgStore) UpdateEvent(ctx context.Context, id int64, patch EventPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	updates := map[string]interface{}{}
	if patch.Date != nil {
		updates["date"] = datatypes.Date(patch.Date.Time())
	}
	if patch.Venue != nil {
		updates["venue"] = *patch.Venue
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&schema.Event{}).Where("id = ?", id).Updates(updates)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, classifyPGError(err))
	}
	if affected == 0 {
		return fmt.Errorf("failed to update event %d: not found: %w", id, domain.ErrStoreRejected)
	}

	return nil
}

func (s *pgStore) DeleteEvents(ctx context.Context, filter EventFilter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		if err := tx.Model(&schema.Event{}).Scopes(eventScope(filter)).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("event_id IN ?", ids).Delete(&schema.Fight{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&schema.Event{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete events: %w", classifyPGError(err))
	}

	return nil
}

func (s *pgStore) ListFighters(ctx context.Context, filter FighterFilter) ([]domain.Fighter, error) {
	query := s.db.WithContext(ctx).Order("id ASC")
	if len(filter.Names) > 0 {
		query = query.Where("name IN ?", filter.Names)
	}

	var rows []schema.Fighter
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list fighters: %w", classifyPGError(err))
	}

	fighters := make([]domain.Fighter, 0, len(rows))
	for _, r := range rows {
		f, err := toDomainFighter(r)
		if err != nil {
			return nil, err
		}
		fighters = append(fighters, f)
	}
	return fighters, nil
}

func (s *pgStore) InsertFighter(ctx context.Context, fighter *domain.Fighter) (*domain.Fighter, error) {
	row, err := toSchemaFighter(fighter)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert fighter %q: %w", fighter.Name, classifyPGError(err))
	}

	out, err := toDomainFighter(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *pgStore) UpdateFighter(ctx context.Context, id int64, patch FighterPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	updates := map[string]interface{}{}
	if patch.WeightClass != nil {
		updates["weight_class"] = *patch.WeightClass
	}
	if patch.Record != nil {
		record, err := json.Marshal(patch.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal fighter record: %w", err)
		}
		updates["record"] = datatypes.JSON(record)
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&schema.Fighter{}).Where("id = ?", id).Updates(updates)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to update fighter %d: %w", id, classifyPGError(err))
	}
	if affected == 0 {
		return fmt.Errorf("failed to update fighter %d: not found: %w", id, domain.ErrStoreRejected)
	}

	return nil
}

func (s *pgStore) ListFights(ctx context.Context, filter FightFilter) ([]domain.Fight, error) {
	query := s.db.WithContext(ctx).Order("event_id ASC, fight_order ASC, id ASC")
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}

	var rows []schema.Fight
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list fights: %w", classifyPGError(err))
	}

	fights := make([]domain.Fight, 0, len(rows))
	for _, r := range rows {
		fights = append(fights, toDomainFight(r))
	}
	return fights, nil
}

func (s *pgStore) InsertFight(ctx context.Context, fight *domain.Fight) (*domain.Fight, error) {
	row := toSchemaFight(fight)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Fighter1", "Fighter2").Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert fight %d of event %d: %w", fight.FightOrder, fight.EventID, classifyPGError(err))
	}

	out := toDomainFight(row)
	return &out, nil
}

func (s *pgStore) DeleteFights(ctx context.Context, filter FightFilter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("event_id = ?", filter.EventID).Delete(&schema.Fight{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete fights of event %d: %w", filter.EventID, classifyPGError(err))
	}

	return nil
}

// eventScope renders an event filter as WHERE clauses
func eventScope(filter EventFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(filter.IDs) > 0 {
			db = db.Where("id IN ?", filter.IDs)
		}
		if filter.Name != "" {
			db = db.Where("name = ?", filter.Name)
		}
		if filter.MissingDate {
			db = db.Where("(date IS NULL OR date <= ?)", datatypes.Date(domain.SentinelDate.Time()))
		}
		return db
	}
}

// classifyPGError maps driver errors onto the store error taxonomy
func classifyPGError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return fmt.Errorf("%w: %w", domain.ErrStoreInvariantViolation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			// integrity constraint violation class
			return fmt.Errorf("%w: %w", domain.ErrStoreInvariantViolation, err)
		case strings.HasPrefix(pgErr.Code, "28"), pgErr.Code == "42501":
			return fmt.Errorf("%w: %w", domain.ErrStoreUnauthorized, err)
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"),
			pgErr.Code == "40001", pgErr.Code == "40P01":
			// connection, resources, operator intervention, serialization and deadlock
			return fmt.Errorf("%w: %w", domain.ErrStoreTransient, err)
		default:
			return fmt.Errorf("%w: %w", domain.ErrStoreRejected, err)
		}
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) ||
		errors.As(err, &netErr) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTransient, err)
	}

	return fmt.Errorf("%w: %w", domain.ErrStoreRejected, err)
}

func toSchemaEvent(e *domain.Event) schema.Event {
	row := schema.Event{
		Name:     e.Name,
		Venue:    e.Venue,
		Location: e.Location,
		Status:   schema.EventStatus(e.Status),
	}
	if row.Status == "" {
		row.Status = schema.EventStatusCompleted
	}
	if e.Date != nil {
		d := datatypes.Date(e.Date.Time())
		row.Date = &d
	}
	return row
}

func toDomainEvent(r schema.Event) domain.Event {
	e := domain.Event{
		ID:       r.ID,
		Name:     r.Name,
		Venue:    r.Venue,
		Location: r.Location,
		Status:   domain.Status(r.Status),
	}
	if r.Date != nil {
		d := domain.DateOf(time.Time(*r.Date))
		e.Date = &d
	}
	return e
}

func toSchemaFighter(f *domain.Fighter) (schema.Fighter, error) {
	row := schema.Fighter{
		Name:        f.Name,
		WeightClass: f.WeightClass,
	}
	if f.Record != nil {
		record, err := json.Marshal(f.Record)
		if err != nil {
			return schema.Fighter{}, fmt.Errorf("failed to marshal fighter record: %w", err)
		}
		row.Record = datatypes.JSON(record)
	}
	return row, nil
}

func toDomainFighter(r schema.Fighter) (domain.Fighter, error) {
	f := domain.Fighter{
		ID:          r.ID,
		Name:        r.Name,
		WeightClass: r.WeightClass,
	}
	if len(r.Record) > 0 && string(r.Record) != "null" {
		var record domain.FighterRecord
		if err := json.Unmarshal(r.Record, &record); err != nil {
			return domain.Fighter{}, fmt.Errorf("failed to unmarshal record of fighter %d: %w", r.ID, err)
		}
		f.Record = &record
	}
	return f, nil
}

func toSchemaFight(f *domain.Fight) schema.Fight {
	row := schema.Fight{
		EventID:       f.EventID,
		Fighter1ID:    f.Fighter1ID,
		Fighter2ID:    f.Fighter2ID,
		WinnerName:    f.WinnerName,
		LoserName:     f.LoserName,
		WeightClass:   f.WeightClass,
		Method:        f.Method,
		Round:         f.Round,
		Time:          f.Time,
		FightOrder:    f.FightOrder,
		IsMainEvent:   f.IsMainEvent,
		IsCoMainEvent: f.IsCoMainEvent,
		Status:        schema.EventStatus(f.Status),
	}
	if row.Status == "" {
		row.Status = schema.EventStatusCompleted
	}
	return row
}

func toDomainFight(r schema.Fight) domain.Fight {
	return domain.Fight{
		ID:            r.ID,
		EventID:       r.EventID,
		Fighter1ID:    r.Fighter1ID,
		Fighter2ID:    r.Fighter2ID,
		WinnerName:    r.WinnerName,
		LoserName:     r.LoserName,
		WeightClass:   r.WeightClass,
		Method:        r.Method,
		Round:         r.Round,
		Time:          r.Time,
		FightOrder:    r.FightOrder,
		IsMainEvent:   r.IsMainEvent,
		IsCoMainEvent: r.IsCoMainEvent,
		Status:        domain.Status(r.Status),
	}
}
