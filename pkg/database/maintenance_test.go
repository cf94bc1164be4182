package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maintenanceColumns = []string{"Table", "Op", "Msg_type", "Msg_text"}

func TestOptimize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("OPTIMIZE TABLE `a`, `we``ird`")).
		WillReturnRows(sqlmock.NewRows(maintenanceColumns).
			AddRow("shop.a", "optimize", "status", "OK").
			AddRow("shop.we`ird", "optimize", "status", "OK"))

	require.NoError(t, Maintainer{DB: db}.Optimize(context.Background(), []string{"a", "we`ird"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyzeReportsErrorRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ANALYZE TABLE `a`")).
		WillReturnRows(sqlmock.NewRows(maintenanceColumns).
			AddRow("shop.a", "analyze", "Error", "SELECT,INSERT command denied").
			AddRow("shop.a", "analyze", "status", "Operation failed"))

	err = Maintainer{DB: db}.Analyze(context.Background(), []string{"a"})
	var merr *MaintenanceError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "ANALYZE TABLE", merr.Op)
	assert.Contains(t, merr.Error(), "command denied")
}

func TestMaintenanceExecFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("OPTIMIZE TABLE").WillReturnError(errors.New("denied"))

	err = Maintainer{DB: db}.Optimize(context.Background(), []string{"a"})
	var merr *MaintenanceError
	assert.ErrorAs(t, err, &merr)
}

func TestMaintenanceNoTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Maintainer{DB: db}.Optimize(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
