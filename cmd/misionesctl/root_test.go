package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"misiones/internal/app"
	jwttoken "misiones/internal/jwt_token"
	"misiones/internal/platform/config"
	"misiones/internal/platform/logger"
	regmodels "misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
)

func testCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &cli{
		out:    &out,
		logger: logger.Discard(),
		loadConfig: func() (config.Config, error) {
			return config.FromMap(map[string]string{"JWT_SIGNING_KEY": "cli-test-key"})
		},
	}, &out
}

func execute(t *testing.T, c *cli, args ...string) error {
	t.Helper()
	root := newRootCmd(c)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestTokenIssue(t *testing.T) {
	c, out := testCLI(t)
	siteID := id.NewSiteID().String()
	require.NoError(t, execute(t, c, "token", "issue", "--subject", "ana", "--role", "site_admin", "--site", siteID))

	var res struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 12*3600, res.ExpiresIn)

	claims, err := jwttoken.NewJWTService("cli-test-key", "misiones").ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, []string{siteID}, claims.SiteIDs)
}

func TestTokenIssueRequiresSitesForSiteAdmin(t *testing.T) {
	c, _ := testCLI(t)
	require.Error(t, execute(t, c, "token", "issue", "--subject", "ana"))
}

func TestSitesSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - name: San Javier\n    capacity: 25\n  - name: Pozo Azul\n    capacity: 18\n"), 0o600))

	c, out := testCLI(t)
	require.NoError(t, execute(t, c, "sites", "seed", "--file", path))

	var res map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 2, res["created"])
}

func TestSitesSeedRequiresFile(t *testing.T) {
	c, _ := testCLI(t)
	require.Error(t, execute(t, c, "sites", "seed"))
}

func TestPromoteValidatesSiteID(t *testing.T) {
	c, _ := testCLI(t)
	require.Error(t, execute(t, c, "promote", "not-a-uuid"))
	require.Error(t, execute(t, c, "promote"))
}

func TestRemindersRunOnEmptyStore(t *testing.T) {
	c, out := testCLI(t)
	require.NoError(t, execute(t, c, "reminders", "run"))
	assert.JSONEq(t, `{"enqueued": 0}`, out.String())
}

func TestMigrateRequiresDatabase(t *testing.T) {
	c, _ := testCLI(t)
	require.Error(t, execute(t, c, "migrate", "up"))
}

func TestAuditCommands(t *testing.T) {
	ctx := context.Background()
	c, out := testCLI(t)
	cfg, err := c.loadConfig()
	require.NoError(t, err)
	stores, err := app.OpenStores(ctx, cfg, logger.Discard(), false)
	require.NoError(t, err)
	c.openStores = func(context.Context, config.Config) (*app.Stores, error) { return stores, nil }

	var regID id.RegistrationID
	require.NoError(t, c.withServices(ctx, func(_ config.Config, _ *app.Stores, svc *app.Services) error {
		site, err := svc.Sites.CreateSite(ctx, &sitemodels.CreateSiteRequest{Name: "Candelaria", Capacity: 1})
		require.NoError(t, err)
		res, err := svc.Registrations.Register(ctx, site.ID, &regmodels.RegisterRequest{
			FullName: "Ana", Email: "ana@example.com", DocumentNumber: "40111001",
		})
		require.NoError(t, err)
		regID = res.ID
		_, err = svc.Registrations.CancelAndPromote(ctx, regID, &regmodels.CancelRequest{Reason: "viaje"})
		return err
	}))

	type eventList struct {
		Events []struct {
			Action         string `json:"action"`
			RegistrationID string `json:"registration_id"`
			Reason         string `json:"reason"`
		} `json:"events"`
	}

	t.Run("events for one registration", func(t *testing.T) {
		out.Reset()
		require.NoError(t, execute(t, c, "audit", "events", regID.String()))
		var res eventList
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		require.Len(t, res.Events, 2)
		assert.Equal(t, "registration_created", res.Events[0].Action)
		assert.Equal(t, "viaje", res.Events[1].Reason)
	})

	t.Run("recent honours the limit", func(t *testing.T) {
		out.Reset()
		require.NoError(t, execute(t, c, "audit", "recent", "--limit", "1"))
		var res eventList
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		require.Len(t, res.Events, 1)
		assert.Equal(t, "registration_cancelled", res.Events[0].Action)
		assert.Equal(t, regID.String(), res.Events[0].RegistrationID)
	})

	t.Run("unknown registration prints an empty list", func(t *testing.T) {
		out.Reset()
		require.NoError(t, execute(t, c, "audit", "events", id.NewRegistrationID().String()))
		assert.JSONEq(t, `{"events": []}`, out.String())
	})

	t.Run("bad input", func(t *testing.T) {
		require.Error(t, execute(t, c, "audit", "events", "not-a-uuid"))
		require.Error(t, execute(t, c, "audit", "recent", "--limit", "0"))
	})
}
