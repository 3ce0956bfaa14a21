package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jakebrehm/osrs-economy/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
}

type ServiceResult struct {
	// in-memory sqlite, only set when DbSchema was given
	DB *sql.DB
	// scratch directory removed when the test ends
	Dir string
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	result := ServiceResult{Dir: t.TempDir()}

	if params.DbSchema != "" {
		sqlite, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatal(err)
		}
		_, err = sqlite.Exec(params.DbSchema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
		result.DB = sqlite
	}

	return result, cleanup
}
