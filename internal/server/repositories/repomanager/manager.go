package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/imagestudio/internal/dbx"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/histories"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// use the same repositories inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Histories(db dbx.DBTX) histories.Repository
}
