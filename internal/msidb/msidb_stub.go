//go:build !windows

package msidb

// Database is the non-Windows stand-in: every operation fails because
// the Windows Installer automation object only exists on Windows.
type Database struct {
	path string
}

// Open records path but defers the platform error to OpenDatabase, mirroring
// the Windows implementation's two-step Open/OpenDatabase split.
func Open(path string) (*Database, error) {
	return &Database{path: path}, nil
}

func (d *Database) Close() error { return nil }

func (d *Database) OpenDatabase(mode Mode) error {
	return newUnsupportedError("OpenDatabase")
}

func (d *Database) Commit() error {
	return newUnsupportedError("Commit")
}

func (d *Database) GetProperty(name string) (string, error) {
	return "", newUnsupportedError("GetProperty")
}

func (d *Database) GetAllProperties() (map[string]string, error) {
	return nil, newUnsupportedError("GetAllProperties")
}

func (d *Database) SetProperty(name, value string) error {
	return newUnsupportedError("SetProperty")
}

func (d *Database) GetSummary() (SummaryInfo, error) {
	return SummaryInfo{}, newUnsupportedError("GetSummary")
}

func (d *Database) GetBinary(name, outPath string) error {
	return newUnsupportedError("GetBinary")
}

func (d *Database) SetBinary(name, inPath string) error {
	return newUnsupportedError("SetBinary")
}

func (d *Database) GetStreams() ([]StreamInfo, error) {
	return nil, newUnsupportedError("GetStreams")
}

func (d *Database) UpdateStream(name, inPath string) error {
	return newUnsupportedError("UpdateStream")
}

func (d *Database) ExecuteSQL(queryOrTable string) ([]Row, error) {
	return nil, newUnsupportedError("ExecuteSQL")
}

func (d *Database) GetTableColumns(table string) ([]Column, error) {
	return nil, newUnsupportedError("GetTableColumns")
}
