package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/collected"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/keys"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/masterdata"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/xmlstaging"
)

// RepositoryManager vends repositories bound to a DBTX, so that services can
// use the same repositories inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Keys(db dbx.DBTX) keys.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	MasterData(db dbx.DBTX) masterdata.Repository
	Collected(db dbx.DBTX) collected.Repository
	XMLStaging(db dbx.DBTX) xmlstaging.Repository
}
