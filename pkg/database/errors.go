package database

import "fmt"

// CatalogQueryError reports a failed catalog lookup (tables, accounts or grants).
type CatalogQueryError struct {
	Op  string
	Err error
}

func (e *CatalogQueryError) Error() string {
	return fmt.Sprintf("catalog query %s failed: %v", e.Op, e.Err)
}

func (e *CatalogQueryError) Unwrap() error { return e.Err }

// MaintenanceError reports a failed OPTIMIZE or ANALYZE run. Usually caused by
// missing privileges and never fatal to a dump.
type MaintenanceError struct {
	Op     string
	Tables []string
	Err    error
}

func (e *MaintenanceError) Error() string {
	return fmt.Sprintf("%s of %d table(s) failed: %v", e.Op, len(e.Tables), e.Err)
}

func (e *MaintenanceError) Unwrap() error { return e.Err }
