// Package postgres is the durable Store on PostgreSQL through gorm.
//
// A unit of work is one READ COMMITTED transaction. Variant rows touched by a checkout are
// locked with SELECT ... FOR UPDATE and decremented with a conditional
// UPDATE ... WHERE stock >= qty, so concurrent checkouts of the same variant serialize on the
// row and stock can never go negative. Any error rolls the whole unit back.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type Store struct {
	db *gorm.DB
}

var _ application.Store = (*Store)(nil)

// Open connects with error translation enabled so unique violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string, logger observability.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return &Store{db: db}, nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the tables this service owns, plus the products read model.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&productRow{},
		&variantRow{},
		&cartRow{},
		&orderRow{},
		&paymentRow{},
	); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Repositories() application.Repositories {
	return reposFor(conn{db: s.db})
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, reposFor(conn{db: tx, inTx: true}))
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// conn is a handle bound either to the pool or to one transaction.
type conn struct {
	db   *gorm.DB
	inTx bool
}

func (c conn) q(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

// forUpdate locks the selected rows when running inside a transaction.
func (c conn) forUpdate(ctx context.Context) *gorm.DB {
	q := c.db.WithContext(ctx)
	if c.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func reposFor(c conn) application.Repositories {
	return application.Repositories{
		Variants: &VariantRepository{c: c},
		Carts:    &CartRepository{c: c},
		Orders:   &OrderRepository{c: c},
		Payments: &PaymentRepository{c: c},
		Products: &ProductRepository{c: c},
	}
}

func translate(err, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", conflict, err)
	default:
		return err
	}
}
