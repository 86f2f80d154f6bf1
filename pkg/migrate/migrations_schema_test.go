package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/greengate/pkg/migrate"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestMirrorTablesCarryUniqueUpstreamKeys(t *testing.T) {
	cases := map[string][]string{
		"create_clients": {
			"CREATE TABLE IF NOT EXISTS clients",
			"CONSTRAINT clients_user_id_key UNIQUE (user_id)",
			"CONSTRAINT clients_drgreen_client_id_key UNIQUE (drgreen_client_id)",
			"CHECK (admin_approval IN ('PENDING', 'VERIFIED', 'REJECTED'))",
			"DROP TABLE IF EXISTS clients",
		},
		"create_orders": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CONSTRAINT orders_drgreen_order_id_key UNIQUE (drgreen_order_id)",
			"CHECK (sync_status IN ('pending', 'synced', 'failed', 'manual_review'))",
			"FOREIGN KEY (client_id) REFERENCES clients(id)",
			"DROP TABLE IF EXISTS orders",
		},
		"create_strains": {
			"CONSTRAINT strains_upstream_country_key UNIQUE (drgreen_strain_id, country_code)",
			"effects           TEXT[]",
		},
		"create_cart_items": {
			"CONSTRAINT cart_items_client_strain_key UNIQUE (client_id, strain_id)",
			"CHECK (quantity > 0)",
		},
		"create_wallet_email_mappings": {
			"CONSTRAINT wallet_email_mappings_wallet_address_key UNIQUE (wallet_address)",
		},
		"create_journey_logs": {
			"CREATE TABLE IF NOT EXISTS journey_logs",
		},
		"create_notifications": {
			"'order_status_changed'",
			"'kyc_status_changed'",
		},
		"create_user_roles": {
			"CONSTRAINT user_roles_user_role_key UNIQUE (user_id, role)",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Order Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_order_index.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "add order  index")
	require.Error(t, err)

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirChecksMarkers(t *testing.T) {
	cases := map[string]string{
		"down before up": "-- +goose Down\n-- +goose Up\n",
		"unbalanced":     "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"missing down":   "-- +goose Up\nSELECT 1;\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_markers.sql"), []byte(body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}
}
