package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sqlgate", cmd.Use)
	assert.Contains(t, cmd.Long, "query definitions")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"render", "validate", "query", "exec"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	verbose := pf.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	assert.Equal(t, "text", pf.Lookup("format").DefValue)
	assert.Equal(t, "0", pf.Lookup("subject-id").DefValue)
	for _, name := range []string{"config", "driver", "dsn", "address"} {
		assert.NotNil(t, pf.Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, "render", "--format", "xml", "x.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestSettings_FlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlgate.cue")
	src := `
driver: "sqlite3"
dsn:    "from-config.db"
identity: {subject_id: 3, address: "10.0.0.1"}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	opts := &RootOptions{Config: path, DSN: "from-flag.db", SubjectID: 9}
	cfg, err := opts.settings()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Driver)
	assert.Equal(t, "from-flag.db", cfg.DSN)
	assert.Equal(t, int64(9), cfg.Identity.SubjectID)
	assert.Equal(t, "10.0.0.1", cfg.Identity.Address)
}

func TestSettings_Defaults(t *testing.T) {
	cfg, err := (&RootOptions{}).settings()
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", cfg.Driver)
	assert.Equal(t, int64(0), cfg.Identity.SubjectID)
}

func TestSettings_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`driver: "oracle"`), 0o644))

	_, _, err := runCLI(t, "--config", path, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"id=5", "@name=a=b", " note = x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "5", "@name": "a=b", "note": " x"}, args)

	_, err = parseArgs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"=x"})
	assert.Error(t, err)
}
