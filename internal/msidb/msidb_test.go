package msidb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeStringNames(t *testing.T) {
	assert.Equal(t, "ReadOnly", ModeReadOnly.String())
	assert.Equal(t, "CreateDirect", ModeCreateDirect.String())
	assert.Equal(t, "None", ModeNone.String())
}

func TestMsiOpenDatabaseModeValues(t *testing.T) {
	assert.Equal(t, 0, msiOpenDatabaseMode(ModeReadOnly))
	assert.Equal(t, 1, msiOpenDatabaseMode(ModeTransact))
	assert.Equal(t, 2, msiOpenDatabaseMode(ModeDirect))
	assert.Equal(t, 3, msiOpenDatabaseMode(ModeCreate))
	assert.Equal(t, 4, msiOpenDatabaseMode(ModeCreateDirect))
	assert.Equal(t, 32, msiOpenDatabaseMode(ModePatchFile))
}

func TestEscapeSQLStringDoublesQuotes(t *testing.T) {
	assert.Equal(t, "O''Brien", escapeSQLString("O'Brien"))
}

func TestTableNameFromQueryHandlesWhereClause(t *testing.T) {
	name := tableNameFromQuery("SELECT * FROM `Property` WHERE `Property` = 'ProductCode'")
	assert.Equal(t, "Property", name)
}

func TestTableNameFromQueryWithoutBackticks(t *testing.T) {
	assert.Equal(t, "Binary", tableNameFromQuery("SELECT * FROM Binary"))
}

func TestFilepathDirAndBaseHandleBothSeparators(t *testing.T) {
	assert.Equal(t, "C:\\temp", filepathDir(`C:\temp\out.bin`))
	assert.Equal(t, "out.bin", filepathBase(`C:\temp\out.bin`))
	assert.Equal(t, "/tmp", filepathDir("/tmp/out.bin"))
	assert.Equal(t, "out.bin", filepathBase("/tmp/out.bin"))
}
