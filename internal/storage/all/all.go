// Package all registers every storage backend.
package all

import (
	_ "banketl/internal/storage/mssql"
	_ "banketl/internal/storage/mysql"
	_ "banketl/internal/storage/postgres"
	_ "banketl/internal/storage/sqlite"
)
