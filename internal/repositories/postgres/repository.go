package postgres

import (
	"context"

	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db      *gorm.DB
	users   repositories.UserRepository
	tests   repositories.TestRepository
	results repositories.ResultRepository
	reports repositories.ReportRepository
	chats   repositories.ChatRepository
}

// NewRepository wires every PostgreSQL repository on one connection
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:      db,
		users:   NewUserPostgreSQL(db),
		tests:   NewTestPostgreSQL(db),
		results: NewResultPostgreSQL(db),
		reports: NewReportPostgreSQL(db),
		chats:   NewChatPostgreSQL(db),
	}
}

func (r *repository) User() repositories.UserRepository     { return r.users }
func (r *repository) Test() repositories.TestRepository     { return r.tests }
func (r *repository) Result() repositories.ResultRepository { return r.results }
func (r *repository) Report() repositories.ReportRepository { return r.reports }
func (r *repository) Chat() repositories.ChatRepository     { return r.chats }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// conn returns tx when a transaction is in progress, otherwise the root DB
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
