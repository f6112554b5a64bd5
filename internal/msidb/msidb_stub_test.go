//go:build !windows

package msidb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStubDatabaseReturnsUnsupportedErrors(t *testing.T) {
	db, err := Open("C:\\package.msi")
	assert.NoError(t, err)

	assert.Error(t, db.OpenDatabase(ModeReadOnly))
	assert.Error(t, db.Commit())

	_, err = db.GetProperty("ProductCode")
	assert.Error(t, err)

	_, err = db.ExecuteSQL("Property")
	assert.Error(t, err)
}
