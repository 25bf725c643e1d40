package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"principal-registry/internal/domain"
)

// cliEnv isolates HOME and points --db at a fresh file.
type cliEnv struct {
	t  *testing.T
	db string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("META_DB_PATH", "")
	t.Setenv("PRINCIPALCTL_OUTPUT", "")
	t.Setenv("PRINCIPALCTL_AS", "")
	return &cliEnv{t: t, db: filepath.Join(dir, "principals.sqlite")}
}

// run executes principalctl with --db and json output prepended.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", e.db, "-o", "json"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, out)
	return out
}

func (e *cliEnv) create(name, email string) principalView {
	e.t.Helper()
	var p principalView
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("create", "--name", name, "--email", email)), &p))
	return p
}

func TestCLI_CreateGetUpdateDelete(t *testing.T) {
	env := newCLIEnv(t)

	p := env.create("Ana", "ana@example.com")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "ENABLED", p.State)

	var got principalView
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("get", p.ID)), &got))
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, json.Unmarshal([]byte(env.mustRun("get-by-email", "ana@example.com")), &got))
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, json.Unmarshal([]byte(env.mustRun("update", p.ID, "--name", "Ana M", "--external-id", "idp|1")), &got))
	assert.Equal(t, "Ana M", got.Name)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "idp|1", *got.ExternalID)

	env.mustRun("--as", "admin@example.com", "delete", p.ID)
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("get", p.ID)), &got))
	assert.Equal(t, "DISABLED", got.State)

	var entries []domain.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("audit", p.ID)), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditDeletePrincipal, entries[0].Action)
	assert.Equal(t, "admin@example.com", entries[0].Actor)
}

func TestCLI_Errors(t *testing.T) {
	env := newCLIEnv(t)
	env.create("Ana", "ana@example.com")

	tests := []struct {
		name     string
		args     []string
		wantKind string
		wantErr  string
	}{
		{"duplicate email", []string{"create", "--name", "B", "--email", "ana@example.com"}, "ALREADY_EXISTS", ""},
		{"unknown id", []string{"get", "nope"}, "NOT_FOUND", ""},
		{"invalid email", []string{"create", "--name", "B", "--email", "bad"}, "INVALID_ARGUMENT", ""},
		{"missing flag", []string{"create", "--name", "B"}, "", "required flag"},
		{"empty update", []string{"update", "x"}, "", "nothing to update"},
		{"bad state", []string{"list", "--state", "gone"}, "", "invalid --state"},
		{"whoami without caller", []string{"whoami"}, "", "no caller"},
		{"bad output", []string{"-o", "yaml", "list"}, "", "unsupported output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			require.Error(t, err)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, errorKind(err))
			}
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCLI_ListFilters(t *testing.T) {
	env := newCLIEnv(t)
	for _, n := range []string{"dave", "carol", "bob", "alice"} {
		env.create(n, n+"@example.com")
	}
	var bob principalView
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("get-by-email", "bob@example.com")), &bob))
	env.mustRun("delete", bob.ID)

	names := func(args ...string) []string {
		var ps []principalView
		require.NoError(t, json.Unmarshal([]byte(env.mustRun(append([]string{"--block-size", "2", "list"}, args...)...)), &ps))
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}
		return out
	}

	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, names())
	assert.Equal(t, []string{"alice", "carol", "dave"}, names("--state", "enabled"))
	assert.Equal(t, []string{"carol", "dave"}, names("--state", "ENABLED", "--start", "1", "--max", "2"))
	assert.Equal(t, []string{"bob"}, names("--state", "disabled"))
	assert.Equal(t, []string{"carol"}, names("--name-contains", "AR"))
}

func TestCLI_Whoami(t *testing.T) {
	env := newCLIEnv(t)
	p := env.create("Ana", "ana@example.com")

	var me map[string]string
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--as", "ana@example.com", "whoami")), &me))
	assert.Equal(t, p.ID, me["principal_id"])

	_, err := env.run("--as", "ghost@example.com", "whoami")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorKind(err))
}

func TestCLI_Migrate(t *testing.T) {
	env := newCLIEnv(t)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("migrate")), &res))
	assert.EqualValues(t, 2, res["version"])
	assert.Equal(t, env.db, res["db"])
}

func TestCLI_TableOutput(t *testing.T) {
	env := newCLIEnv(t)
	env.create("Ana", "ana@example.com")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--db", env.db, "-o", "table", "list"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "ana@example.com")
}

func TestCLI_ProfileDefaults(t *testing.T) {
	newCLIEnv(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".principalctl"), 0o700))
	profileDB := filepath.Join(home, "from-profile.sqlite")
	require.NoError(t, os.WriteFile(ConfigPath(), []byte(
		"current-profile: dev\nprofiles:\n  dev:\n    db: "+profileDB+"\n    output: json\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, profileDB, res["db"])
}

func TestLoadUserConfig_Missing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, Profile{}, cfg.ActiveProfile(""))
}
