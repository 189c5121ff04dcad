package postgres

import (
	"github.com/xrplf/nunld/internal/storage/relationaldb"
	"github.com/xrplf/nunld/testutils"
)

func init() {
	// Register the PostgreSQL repository manager factory with testutils
	testutils.RegisterRepositoryFactory("postgres", func(config *relationaldb.Config) (relationaldb.RepositoryManager, error) {
		return NewRepositoryManager(config)
	})
}