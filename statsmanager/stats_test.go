package statsmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/smaq"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.CurrentQueryID())
	assert.Equal(t, 0.0, m.GetBudget("k"))
}

func TestOpenCorruptFileResetsToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	m, err := Open(path)
	require.Error(t, err)
	var smaErr *smaq.SmaError
	require.ErrorAs(t, err, &smaErr)
	assert.Equal(t, smaq.ErrorTypeStatsCorruption, smaErr.Type)
	assert.Equal(t, int64(0), m.CurrentQueryID())
}

func TestNextQueryIDIsReadThenIncrement(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)

	assert.Equal(t, int64(0), m.NextQueryID())
	assert.Equal(t, int64(1), m.NextQueryID())
	assert.Equal(t, int64(2), m.CurrentQueryID())
}

func TestAddBudgetClampsAtZero(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)

	m.AddBudget("k", 1.0)
	assert.Equal(t, 1.0, m.GetBudget("k"))
	m.AddBudget("k", -5.0)
	assert.Equal(t, 0.0, m.GetBudget("k"))
}

func TestRecordScanSkipTakesPrecedenceAndTouchesLastUsed(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)

	m.NextQueryID() // advance to 1
	m.RecordScan("k", 0, true, true)

	snap := m.Snapshot("k")
	assert.Equal(t, int64(1), snap.ScanCount)
	assert.Equal(t, int64(1), snap.SkippedCount)
	assert.Equal(t, int64(0), snap.OutlierRetrievedCount)
	assert.Equal(t, int64(1), snap.LastSmaUsedQueryID)
}

func TestRecordScanFullScanSetsLastParquetScanned(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)

	m.NextQueryID() // advance to 1
	m.RecordScan("k", 0.5, false, false)
	snap := m.Snapshot("k")
	assert.Equal(t, 0.5, snap.TotalScanTime)
	assert.Equal(t, 0.5, snap.LastScanTime)
	assert.Equal(t, int64(1), snap.LastParquetScannedQueryID)
	assert.Equal(t, int64(0), snap.LastSmaUsedQueryID)
}

func TestAvgScanTime(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.AvgScanTime("k"))
	m.RecordScan("k", 2.0, false, false)
	m.RecordScan("k", 4.0, false, false)
	assert.Equal(t, 3.0, m.AvgScanTime("k"))
}

func TestSaveAndReopenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.json")

	m, err := Open(path)
	require.NoError(t, err)
	m.NextQueryID()
	m.AddBudget("k", 2.5)
	m.RecordConstruction("k")
	m.RecordScan("k", 1.2, false, true)
	require.NoError(t, m.Save())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reopened.CurrentQueryID())
	assert.Equal(t, 2.5, reopened.GetBudget("k"))
	snap := reopened.Snapshot("k")
	assert.Equal(t, int64(1), snap.ConstructionCount)
	assert.Equal(t, int64(1), snap.OutlierRetrievedCount)
}

func TestForgetKeyClearsBudgetAndMetrics(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "stats.json"))
	require.NoError(t, err)

	m.AddBudget("k", 1.0)
	m.RecordScan("k", 1.0, false, false)
	m.ForgetKey("k")

	assert.Equal(t, 0.0, m.GetBudget("k"))
	assert.Equal(t, int64(0), m.Snapshot("k").ScanCount)
}
