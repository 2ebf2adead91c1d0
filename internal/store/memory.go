package store

// MemDriver keeps tables in memory. It backs tests and any workflow that
// never needs durability.
type MemDriver struct {
	tables map[string][][]string

	// FailWrite, when set, makes WriteTables fail without touching the
	// stored tables. Tests use it to exercise persist-failure handling.
	FailWrite error
}

// NewMemDriver returns an empty in-memory driver.
func NewMemDriver() *MemDriver {
	return &MemDriver{tables: make(map[string][][]string)}
}

// ReadTable implements Driver.
func (d *MemDriver) ReadTable(table string) ([][]string, error) {
	return copyRecords(d.tables[table]), nil
}

// WriteTables implements Driver.
func (d *MemDriver) WriteTables(tables map[string][][]string) error {
	if d.FailWrite != nil {
		return d.FailWrite
	}
	for name, records := range tables {
		d.tables[name] = copyRecords(records)
	}
	return nil
}

// Tables implements Driver.
func (d *MemDriver) Tables() ([]string, error) {
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	return names, nil
}

func copyRecords(records [][]string) [][]string {
	if records == nil {
		return nil
	}
	out := make([][]string, len(records))
	for i, rec := range records {
		out[i] = append([]string(nil), rec...)
	}
	return out
}
