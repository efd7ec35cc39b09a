package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/engine"
)

const cliCSV = `instruction,response
how do I reset my password,Use the reset link on the login page.
I forgot my password,Use the reset link on the login page.
cancel my subscription,Subscriptions can be cancelled under billing.
where is my refund,Refunds arrive within five days.
update my billing address,Open billing settings to change the address.
`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestPrepareTrainAsk(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "raw", "support.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0o755))
	require.NoError(t, os.WriteFile(csvPath, []byte(cliCSV), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`log:
  level: disabled
store:
  type: file
  dir: %s
dataset:
  processed_path: %s
`, filepath.Join(dir, "models"), filepath.Join(dir, "data", "processed.json"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out := run(t, "--config", cfgPath, "dataset", "prepare", "--csv", filepath.Join(dir, "raw"))
	assert.Contains(t, out, "Text column: instruction")
	assert.Contains(t, out, "Samples: 5 (train 4, validation 1)")

	out = run(t, "--config", cfgPath, "train", "--model", "basic")
	assert.True(t, strings.HasPrefix(out, "basic: 4 samples"), out)
	_, err := os.Stat(filepath.Join(dir, "models", "basic_model.json"))
	require.NoError(t, err)

	out = run(t, "--config", cfgPath, "ask", "--model", "basic", "refund")
	assert.NotContains(t, out, engine.MsgNotTrained)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out = run(t, "--config", cfgPath, "status")
	assert.Contains(t, out, `"store": "file"`)
	assert.Contains(t, out, `"training_history"`)
}

func TestTrainRejectsUnknownModel(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "train", "--model", "gpt"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}
