package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/menubot-backend/internal/middleware"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
)

const testPhone = "+966500000001"

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("USE_MEMORY_STORE", "false")
	t.Setenv("DATABASE_DSN", "")
}

// execute runs menuctl with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSimulate_Memory(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "simulate", "--memory", "--tenant", "t1", "--from", testPhone, "--text", "hello")
	require.NoError(t, err)
	assert.Equal(t, services.ReplyHelp+"\n", out)

	out, err = execute(t, "simulate", "--memory", "--tenant", "t1", "--from", testPhone,
		"--text", "add item name: Tea price: 5 available: yes", "--id", "SM1")
	require.NoError(t, err)
	assert.Contains(t, out, services.ReplyConfirmOrCancel)
	assert.Contains(t, out, "Tea")
}

func TestSimulate_JSON(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "simulate", "--memory", "--json", "--tenant", "t1", "--from", testPhone, "--text", "hello")
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, services.ReplyHelp, body["reply"])
}

func TestSimulate_Errors(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "simulate", "--memory", "--text", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from required")

	_, err = execute(t, "simulate", "--memory", "--from", testPhone, "--text", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve tenant")
}

func TestSimulate_RequiresStore(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "simulate", "--tenant", "t1", "--from", testPhone, "--text", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
}

func TestTenantAdd_JSON(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "tenant", "add", "--memory", "--json", "--name", " Burger Hub ", "--phone", testPhone)
	require.NoError(t, err)

	var tenant struct {
		ID   string
		Name string
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tenant))
	assert.NotEmpty(t, tenant.ID)
	assert.Equal(t, "Burger Hub", tenant.Name)

	_, err = execute(t, "tenant", "add", "--memory", "--name", "Burger Hub")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--phone")
}

func TestTenantToken(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ADMIN_JWT_SECRET", "cli-secret")
	t.Setenv("ADMIN_JWT_ISSUER", "menubot")

	out, err := execute(t, "tenant", "token", "--memory", "--tenant", "t1")
	require.NoError(t, err)

	tenantID, err := middleware.NewAdminTokens("cli-secret", "menubot").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "t1", tenantID)
}

func TestTenantToken_RequiresSecret(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ADMIN_JWT_SECRET", "")

	_, err := execute(t, "tenant", "token", "--memory", "--tenant", "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_JWT_SECRET")
}

func TestMenuListAndAuditTail(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "menu", "list", "--memory", "--json", "--tenant", "t1")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(out))

	out, err = execute(t, "audit", "tail", "--memory", "--tenant", "t1")
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(out), "ACTION")

	_, err = execute(t, "audit", "tail", "--memory", "--tenant", "t1", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
}

func TestMigrate_Memory(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "migrate", "--memory")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to migrate")
}
