//go:build windows

package msidb

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/scjalliance/comshim"

	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

// Database is a handle to an MSI file opened through the
// "WindowsInstaller.Installer" automation object (spec §4.11,
// §5 "MSI resource discipline").
type Database struct {
	mu        sync.Mutex
	path      string
	installer *ole.IDispatch
	database  *ole.IDispatch
	mode      Mode
}

// Open creates the Installer automation object and remembers path; the
// database itself is opened by a subsequent OpenDatabase call (spec
// §4.11 "Open(path)").
func Open(path string) (*Database, error) {
	comshim.Add(1)

	unknown, err := oleutil.CreateObject("WindowsInstaller.Installer")
	if err != nil {
		comshim.Done()
		return nil, toolkiterr.New(component, toolkiterr.Transport, fmt.Errorf("creating Installer automation object: %w", err))
	}
	installer, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		comshim.Done()
		return nil, toolkiterr.New(component, toolkiterr.Transport, fmt.Errorf("querying IDispatch: %w", err))
	}

	return &Database{path: path, installer: installer}, nil
}

// Close releases every COM handle held by the database.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.database != nil {
		d.database.Release()
		d.database = nil
	}
	if d.installer != nil {
		d.installer.Release()
		d.installer = nil
	}
	comshim.Done()
	return nil
}

// OpenDatabase opens (or reopens, after committing the outgoing mode)
// the database at path in the given mode (spec §4.11, §5 "mode changes
// perform an internal Commit first").
func (d *Database) OpenDatabase(mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.database != nil {
		if err := d.commitLocked(); err != nil {
			return err
		}
		d.database.Release()
		d.database = nil
	}

	result, err := oleutil.CallMethod(d.installer, "OpenDatabase", d.path, msiOpenDatabaseMode(mode))
	if err != nil {
		return toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("OpenDatabase(%s, %s): %w", d.path, mode, err))
	}

	d.database = result.ToIDispatch()
	d.mode = mode
	return nil
}

// Commit flushes pending changes to disk (spec §4.11 "Commit()").
func (d *Database) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commitLocked()
}

func (d *Database) commitLocked() error {
	if d.database == nil {
		return nil
	}
	_, err := oleutil.CallMethod(d.database, "Commit")
	if err != nil {
		return toolkiterr.New(component, toolkiterr.ModeConflict, fmt.Errorf("Commit: %w", err))
	}
	return nil
}

// openView opens a View for sql and returns it; callers must Release it.
func (d *Database) openView(sql string) (*ole.IDispatch, error) {
	if d.database == nil {
		return nil, toolkiterr.New(component, toolkiterr.ModeConflict, fmt.Errorf("no database open"))
	}

	viewVar, err := oleutil.CallMethod(d.database, "OpenView", sql)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("OpenView(%q): %w", sql, err))
	}
	view := viewVar.ToIDispatch()

	if _, err := oleutil.CallMethod(view, "Execute"); err != nil {
		view.Release()
		return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("View.Execute(%q): %w", sql, err))
	}

	return view, nil
}

// fetchAll walks every row a View produces via repeated Fetch calls,
// mapping each Record's fields by position into a Row using cols.
func fetchAll(view *ole.IDispatch, cols []Column) ([]Row, error) {
	var rows []Row

	for {
		recordVar, err := oleutil.CallMethod(view, "Fetch")
		if err != nil {
			return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("View.Fetch: %w", err))
		}
		if recordVar.VT == ole.VT_NULL || recordVar.VT == ole.VT_EMPTY {
			break
		}
		record := recordVar.ToIDispatch()

		row := make(Row, len(cols))
		for _, col := range cols {
			valueVar, err := oleutil.CallMethod(record, "StringData", col.Number)
			if err != nil {
				record.Release()
				return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("Record.StringData(%d): %w", col.Number, err))
			}
			row[col.Name] = valueVar.ToString()
		}
		record.Release()
		rows = append(rows, row)
	}

	return rows, nil
}

// GetTableColumns resolves table's columns via the `_Columns` system
// table, ordered by Number (spec §4.11).
func (d *Database) GetTableColumns(table string) ([]Column, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sql := fmt.Sprintf("SELECT * FROM `_Columns` WHERE `Table` = '%s' ORDER BY `Number`", escapeSQLString(table))
	view, err := d.openView(sql)
	if err != nil {
		return nil, err
	}
	defer view.Release()

	metaCols := []Column{{Number: 2, Name: "Number"}, {Number: 3, Name: "Name"}, {Number: 4, Name: "Type"}}
	rows, err := fetchAll(view, metaCols)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, 0, len(rows))
	for _, row := range rows {
		number, _ := strconv.Atoi(row["Number"])
		cols = append(cols, Column{Number: number, Name: row["Name"], Type: row["Type"]})
	}
	return cols, nil
}

// ExecuteSQL accepts either a full `SELECT ... FROM <T> [WHERE ...]` or a
// bare table name, expanded to `SELECT * FROM <T>` (spec §4.11).
func (d *Database) ExecuteSQL(queryOrTable string) ([]Row, error) {
	sql := queryOrTable
	table := queryOrTable
	if strings.Contains(strings.ToUpper(strings.TrimSpace(queryOrTable)), "SELECT") {
		sql = queryOrTable
		table = tableNameFromQuery(queryOrTable)
	} else {
		sql = fmt.Sprintf("SELECT * FROM `%s`", table)
	}

	cols, err := d.GetTableColumns(table)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	view, err := d.openView(sql)
	if err != nil {
		return nil, err
	}
	defer view.Release()

	return fetchAll(view, cols)
}

// GetProperty reads a single row's Value from the Property table (spec
// §4.11 "GetProperty(name?)").
func (d *Database) GetProperty(name string) (string, error) {
	rows, err := d.ExecuteSQL(fmt.Sprintf("SELECT * FROM `Property` WHERE `Property` = '%s'", escapeSQLString(name)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", toolkiterr.New(component, toolkiterr.NotFound, fmt.Errorf("property %q not found", name))
	}
	return rows[0]["Value"], nil
}

// GetAllProperties returns every Property-table row as a name-to-value
// map.
func (d *Database) GetAllProperties() (map[string]string, error) {
	rows, err := d.ExecuteSQL("Property")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row["Property"]] = row["Value"]
	}
	return out, nil
}

// SetProperty updates the Property row if it exists, else inserts it
// (spec §4.11 "SetProperty: UPDATE when the property exists, else
// INSERT").
func (d *Database) SetProperty(name, value string) error {
	_, err := d.GetProperty(name)
	var sql string
	if err == nil {
		sql = fmt.Sprintf("UPDATE `Property` SET `Value` = '%s' WHERE `Property` = '%s'", escapeSQLString(value), escapeSQLString(name))
	} else {
		sql = fmt.Sprintf("INSERT INTO `Property` (`Property`, `Value`) VALUES ('%s', '%s')", escapeSQLString(name), escapeSQLString(value))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	view, err := d.openView(sql)
	if err != nil {
		return err
	}
	view.Release()
	return nil
}

// GetSummary reads the fixed-index Summary Information properties
// (spec §4.11).
func (d *Database) GetSummary() (SummaryInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.database == nil {
		return SummaryInfo{}, toolkiterr.New(component, toolkiterr.ModeConflict, fmt.Errorf("no database open"))
	}

	summaryVar, err := oleutil.CallMethod(d.database, "SummaryInformation", 0)
	if err != nil {
		return SummaryInfo{}, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("SummaryInformation: %w", err))
	}
	summary := summaryVar.ToIDispatch()
	defer summary.Release()

	str := func(pid int) string {
		v, err := oleutil.CallMethod(summary, "Property", pid)
		if err != nil {
			return ""
		}
		return v.ToString()
	}
	num := func(pid int) int {
		v, err := oleutil.CallMethod(summary, "Property", pid)
		if err != nil {
			return 0
		}
		n, _ := strconv.Atoi(v.ToString())
		return n
	}

	return SummaryInfo{
		Title:               str(pidTitle),
		Subject:             str(pidSubject),
		Author:              str(pidAuthor),
		Keywords:            str(pidKeywords),
		Comments:            str(pidComments),
		Template:            str(pidTemplate),
		LastSavedBy:         str(pidLastSavedBy),
		RevisionNumber:      str(pidRevisionNumber),
		LastPrinted:         str(pidLastPrinted),
		CreateTimeDate:      str(pidCreateTimeDate),
		LastSaveTimeDate:    str(pidLastSaveTimeDate),
		PageCount:           num(pidPageCount),
		WordCount:           num(pidWordCount),
		CharacterCount:      num(pidCharacterCount),
		CreatingApplication: str(pidCreatingApplication),
		Security:            num(pidSecurity),
		CodePage:            num(pidCodePage),
	}, nil
}

// GetBinary streams the named Binary-table row to outPath (spec §4.11).
func (d *Database) GetBinary(name, outPath string) error {
	return d.readStreamRow("Binary", "Name", name, outPath)
}

// GetStreams lists every `_Streams` row's name and byte size (spec
// §4.11, enriched per SPEC_FULL.md §9 "Recovered features" to expose the
// same Name+size shape richer queries use elsewhere instead of bare
// names).
func (d *Database) GetStreams() ([]StreamInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	view, err := d.openView("SELECT * FROM `_Streams`")
	if err != nil {
		return nil, err
	}
	defer view.Release()

	var streams []StreamInfo
	for {
		recordVar, err := oleutil.CallMethod(view, "Fetch")
		if err != nil {
			return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("View.Fetch: %w", err))
		}
		if recordVar.VT == ole.VT_NULL || recordVar.VT == ole.VT_EMPTY {
			break
		}
		record := recordVar.ToIDispatch()

		nameVar, err := oleutil.CallMethod(record, "StringData", 1)
		if err != nil {
			record.Release()
			return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("Record.StringData(1): %w", err))
		}
		sizeVar, err := oleutil.CallMethod(record, "DataSize", 2)
		if err != nil {
			record.Release()
			return nil, toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("Record.DataSize(2): %w", err))
		}
		record.Release()

		streams = append(streams, StreamInfo{Name: nameVar.ToString(), SizeBytes: int(sizeVar.Val)})
	}

	return streams, nil
}

// SetBinary replaces (or inserts) the named Binary-table row's stream
// payload from inPath (spec §4.11).
func (d *Database) SetBinary(name, inPath string) error {
	return d.writeStreamRow("Binary", "Name", "Data", name, inPath)
}

// UpdateStream replaces (or inserts) the named `_Streams`-table row's
// payload from inPath (spec §4.11).
func (d *Database) UpdateStream(name, inPath string) error {
	return d.writeStreamRow("_Streams", "Name", "Data", name, inPath)
}

func (d *Database) readStreamRow(table, keyCol, name, outPath string) error {
	rows, err := d.ExecuteSQL(fmt.Sprintf("SELECT * FROM `%s` WHERE `%s` = '%s'", table, keyCol, escapeSQLString(name)))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return toolkiterr.New(component, toolkiterr.NotFound, fmt.Errorf("%s row %q not found", table, name))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sql := fmt.Sprintf("SELECT * FROM `%s` WHERE `%s` = '%s'", table, keyCol, escapeSQLString(name))
	view, err := d.openView(sql)
	if err != nil {
		return err
	}
	defer view.Release()

	recordVar, err := oleutil.CallMethod(view, "Fetch")
	if err != nil {
		return toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("View.Fetch: %w", err))
	}
	record := recordVar.ToIDispatch()
	defer record.Release()

	if _, err := oleutil.CallMethod(record, "Export", 2, filepathDir(outPath), filepathBase(outPath)); err != nil {
		return toolkiterr.New(component, toolkiterr.Decode, fmt.Errorf("Record.Export: %w", err))
	}
	return nil
}

func (d *Database) writeStreamRow(table, keyCol, dataCol, name, inPath string) error {
	rows, err := d.ExecuteSQL(fmt.Sprintf("SELECT * FROM `%s` WHERE `%s` = '%s'", table, keyCol, escapeSQLString(name)))
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	recordVar, err := oleutil.CallMethod(d.installer, "CreateRecord", 2)
	if err != nil {
		return toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("CreateRecord: %w", err))
	}
	record := recordVar.ToIDispatch()
	defer record.Release()

	var sql string
	if len(rows) > 0 {
		// UPDATE `table` SET `dataCol` = ? WHERE `keyCol` = ? binds
		// param 1 to the stream and param 2 to the key.
		if _, err := oleutil.CallMethod(record, "SetStream", 1, inPath); err != nil {
			return toolkiterr.New(component, toolkiterr.Decode, fmt.Errorf("Record.SetStream: %w", err))
		}
		if _, err := oleutil.CallMethod(record, "SetStringData", 2, name); err != nil {
			return toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("Record.SetStringData: %w", err))
		}
		sql = fmt.Sprintf("UPDATE `%s` SET `%s` = ? WHERE `%s` = ?", table, dataCol, keyCol)
	} else {
		// INSERT INTO `table` (`keyCol`, `dataCol`) VALUES (?, ?) binds
		// param 1 to the key and param 2 to the stream.
		if _, err := oleutil.CallMethod(record, "SetStringData", 1, name); err != nil {
			return toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("Record.SetStringData: %w", err))
		}
		if _, err := oleutil.CallMethod(record, "SetStream", 2, inPath); err != nil {
			return toolkiterr.New(component, toolkiterr.Decode, fmt.Errorf("Record.SetStream: %w", err))
		}
		sql = fmt.Sprintf("INSERT INTO `%s` (`%s`, `%s`) VALUES (?, ?)", table, keyCol, dataCol)
	}

	view, err := d.openView(sql)
	if err != nil {
		return err
	}
	defer view.Release()

	if _, err := oleutil.CallMethod(view, "Execute", record); err != nil {
		return toolkiterr.New(component, toolkiterr.Schema, fmt.Errorf("View.Execute with stream record: %w", err))
	}
	return nil
}

