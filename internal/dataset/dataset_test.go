package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supportCSV = `flags,instruction,category,intent,response
B,how do I reset my password,ACCOUNT,reset_password,Use the reset link.
B,  ,ACCOUNT,reset_password,Orphan response.
B,cancel my order,ORDER,cancel_order,Orders can be cancelled from history.
B,where is my refund,REFUND,track_refund,Refunds take five days.
B,talk to a human,CONTACT,contact_agent,
B,update billing address,PAYMENT,edit_address,Open billing settings.
`

func TestDetectColumns(t *testing.T) {
	cols, err := DetectColumns([]string{"flags", "instruction", "category", "intent", "response"})
	require.NoError(t, err)
	assert.Equal(t, "instruction", cols.Text)
	assert.Equal(t, "response", cols.Response)
	assert.Equal(t, "category", cols.Category)
}

func TestDetectColumnsFallsBackToFirstTwo(t *testing.T) {
	cols, err := DetectColumns([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "a", cols.Text)
	assert.Equal(t, "b", cols.Response)
	assert.Empty(t, cols.Category)

	_, err = DetectColumns(nil)
	assert.Error(t, err)
}

func TestReadCSVDropsIncompleteRows(t *testing.T) {
	records, cols, err := ReadCSV(strings.NewReader(supportCSV))
	require.NoError(t, err)
	assert.Equal(t, "instruction", cols.Text)
	require.Len(t, records, 4)
	assert.Equal(t, Record{Input: "how do I reset my password", Target: "Use the reset link.", Category: "ACCOUNT"}, records[0])
	assert.Equal(t, "update billing address", records[3].Input)
}

func TestReadCSVEmpty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestFindCSV(t *testing.T) {
	dir := t.TempDir()
	_, err := FindCSV(dir)
	assert.ErrorIs(t, err, ErrNoCSV)

	sub := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.csv"), []byte(supportCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.CSV"), []byte(supportCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	got, err := FindCSV(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "a.CSV"), got)

	got, err = FindCSV(filepath.Join(sub, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "b.csv"), got)

	records, _, err := LoadCSV(dir)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestSplitIsDeterministicAndComplete(t *testing.T) {
	records, cols, err := ReadCSV(strings.NewReader(supportCSV))
	require.NoError(t, err)

	a := Split(records, cols, 0.2, 42)
	b := Split(records, cols, 0.2, 42)
	assert.Equal(t, a, b)

	assert.Equal(t, 1, a.Validation.Len())
	assert.Equal(t, 3, a.Train.Len())
	assert.Equal(t, Info{
		TotalSamples:      4,
		TrainSamples:      3,
		ValidationSamples: 1,
		TextColumn:        "instruction",
		ResponseColumn:    "response",
		CategoryColumn:    "category",
	}, a.Info)

	seen := map[string]string{}
	for _, s := range []struct{ in, out []string }{{a.Train.Inputs, a.Train.Targets}, {a.Validation.Inputs, a.Validation.Targets}} {
		for i := range s.in {
			seen[s.in[i]] = s.out[i]
		}
	}
	for _, r := range records {
		assert.Equal(t, r.Target, seen[r.Input])
	}
}

func TestSplitSingleRecordKeepsItForTraining(t *testing.T) {
	p := Split([]Record{{Input: "hi", Target: "hello"}}, Columns{}, 0.2, 42)
	assert.Equal(t, 1, p.Train.Len())
	assert.Equal(t, 0, p.Validation.Len())
}

func TestSaveLoadAndSamples(t *testing.T) {
	records, cols, err := ReadCSV(strings.NewReader(supportCSV))
	require.NoError(t, err)
	p := Split(records, cols, 0.2, 7)

	path := filepath.Join(t.TempDir(), "data", "processed.json")
	require.NoError(t, Save(path, p))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	samples := got.Samples(2)
	require.Len(t, samples, 2)
	assert.Equal(t, got.Train.Inputs[0], samples[0].Input)
	assert.Len(t, got.Samples(100), got.Train.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
