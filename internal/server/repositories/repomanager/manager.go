package repomanager

import (
	"context"
	"database/sql"

	"github.com/shreels/tgauth/internal/dbx"
	"github.com/shreels/tgauth/internal/server/repositories/identities"
	"github.com/shreels/tgauth/internal/server/repositories/profiles"
	"github.com/shreels/tgauth/internal/server/repositories/referrals"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can run several of them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Referrals(db dbx.DBTX) referrals.Repository
}
