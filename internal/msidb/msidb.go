// Package msidb implements MSIDatabase (spec C11): a transactional MSI
// Property/Binary/Stream/Summary editor built on the Windows Installer
// automation object. The COM-backed implementation lives in
// msidb_windows.go; msidb_stub.go provides the non-Windows stand-in.
package msidb

import (
	"strings"

	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

const component = "msidb"

// Mode is one of the six open modes named in spec §4.11.
type Mode int

const (
	ModeNone Mode = iota
	ModeReadOnly
	ModeTransact
	ModeDirect
	ModeCreate
	ModeCreateDirect
	ModePatchFile
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "ReadOnly"
	case ModeTransact:
		return "Transact"
	case ModeDirect:
		return "Direct"
	case ModeCreate:
		return "Create"
	case ModeCreateDirect:
		return "CreateDirect"
	case ModePatchFile:
		return "PatchFile"
	default:
		return "None"
	}
}

// msiOpenDatabaseMode maps Mode to the MSIDBOPEN_* persist-mode constant
// expected by Installer.OpenDatabase (msiquery.h).
func msiOpenDatabaseMode(m Mode) int {
	switch m {
	case ModeReadOnly:
		return 0
	case ModeTransact:
		return 1
	case ModeDirect:
		return 2
	case ModeCreate:
		return 3
	case ModeCreateDirect:
		return 4
	case ModePatchFile:
		return 32
	default:
		return 0
	}
}

// Column is one row of the `_Columns` system table, used to resolve
// ExecuteSQL result fields by name (spec §4.11).
type Column struct {
	Number int
	Name   string
	Type   string
}

// Row is one ExecuteSQL result row, keyed by column name.
type Row map[string]string

// StreamInfo is one `_Streams` row's name and byte size (spec §4.11,
// SPEC_FULL.md §9 "Recovered features").
type StreamInfo struct {
	Name      string
	SizeBytes int
}

// SummaryInfo mirrors the MSI Summary Information stream's fixed
// property indices (spec §4.11).
type SummaryInfo struct {
	Title               string
	Subject              string
	Author               string
	Keywords             string
	Comments             string
	Template             string
	LastSavedBy          string
	RevisionNumber       string
	LastPrinted          string
	CreateTimeDate       string
	LastSaveTimeDate     string
	PageCount            int
	WordCount            int
	CharacterCount       int
	CreatingApplication  string
	Security             int
	CodePage             int
}

// summaryPropertyIDs maps each SummaryInfo field to its fixed PID (spec
// §4.11).
const (
	pidCodePage            = 1
	pidTitle               = 2
	pidSubject             = 3
	pidAuthor              = 4
	pidKeywords            = 5
	pidComments            = 6
	pidTemplate            = 7
	pidLastSavedBy         = 8
	pidRevisionNumber      = 9
	pidLastPrinted         = 11
	pidCreateTimeDate      = 12
	pidLastSaveTimeDate    = 13
	pidPageCount           = 14
	pidWordCount           = 15
	pidCharacterCount      = 16
	pidCreatingApplication = 18
	pidSecurity            = 19
)

// escapeSQLString doubles embedded single quotes for inline SQL literal
// construction (spec §4.11's ExecuteSQL accepts hand-built SQL text).
func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// tableNameFromQuery extracts the table name following "FROM" in a
// SELECT statement, tolerating surrounding backticks.
func tableNameFromQuery(query string) string {
	upper := strings.ToUpper(query)
	idx := strings.Index(upper, "FROM")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(query[idx+len("FROM"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "`")
}

// filepathDir and filepathBase split a path on either separator without
// pulling in path/filepath's OS-specific behavior, since MSI Record.Export
// paths may be supplied in either form.
func filepathDir(p string) string {
	idx := strings.LastIndexAny(p, `/\`)
	if idx < 0 {
		return "."
	}
	return p[:idx]
}

func filepathBase(p string) string {
	idx := strings.LastIndexAny(p, `/\`)
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// newUnsupportedError builds the error every non-Windows stub operation
// returns.
func newUnsupportedError(op string) error {
	return toolkiterr.New(component, toolkiterr.ModeConflict,
		errUnsupported{op: op})
}

type errUnsupported struct{ op string }

func (e errUnsupported) Error() string {
	return "msidb: " + e.op + " requires the Windows Installer automation object"
}
