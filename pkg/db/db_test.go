/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

func TestBuildConnURL(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		u, err := buildConnURL(&models.DatabaseConfig{Host: "db.local", Name: "assetradar"})
		require.NoError(t, err)

		assert.Equal(t, "postgres", u.Scheme)
		assert.Equal(t, "db.local:5432", u.Host)
		assert.Equal(t, "/assetradar", u.Path)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
		assert.Nil(t, u.User)
	})

	t.Run("credentials and options", func(t *testing.T) {
		u, err := buildConnURL(&models.DatabaseConfig{
			Host:            "db.local",
			Port:            6432,
			Name:            "assetradar",
			Username:        "core",
			Password:        "p@ss word",
			SSLMode:         "require",
			ApplicationName: "assetradar-core",
		})
		require.NoError(t, err)

		pass, ok := u.User.Password()
		assert.True(t, ok)
		assert.Equal(t, "p@ss word", pass)
		assert.Equal(t, "core", u.User.Username())
		assert.Equal(t, "db.local:6432", u.Host)
		assert.Equal(t, "require", u.Query().Get("sslmode"))
		assert.Equal(t, "assetradar-core", u.Query().Get("application_name"))
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := buildConnURL(&models.DatabaseConfig{Name: "assetradar"})
		assert.ErrorIs(t, err, ErrIncompleteConfig)
	})
}

func TestSplitSQLStatements(t *testing.T) {
	sql := `
-- leading comment; with semicolon
CREATE TABLE a (id INT);
/* block; comment */
INSERT INTO a VALUES (1), (2);
INSERT INTO b (name) VALUES ('semi;colon'), ('it''s');
CREATE FUNCTION f() RETURNS void AS $body$
BEGIN
    PERFORM 1;
END;
$body$ LANGUAGE plpgsql;
SELECT $1::int;
`

	stmts := splitSQLStatements(sql)
	require.Len(t, stmts, 5)

	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.Equal(t, "INSERT INTO a VALUES (1), (2)", stmts[1])
	assert.Equal(t, "INSERT INTO b (name) VALUES ('semi;colon'), ('it''s')", stmts[2])
	assert.Contains(t, stmts[3], "PERFORM 1;")
	assert.Contains(t, stmts[3], "$body$ LANGUAGE plpgsql")
	assert.Equal(t, "SELECT $1::int", stmts[4])
}

func TestDollarTag(t *testing.T) {
	assert.Equal(t, "$$", dollarTag("$$ body $$"))
	assert.Equal(t, "$fn$", dollarTag("$fn$ body"))
	assert.Equal(t, "", dollarTag("$1, $2"))
	assert.Equal(t, "", dollarTag("$ x"))
}

func TestMigrations(t *testing.T) {
	assert.Equal(t, "00000000000001", migrationVersion("00000000000001_assetradar_schema.up.sql"))

	all, err := pendingMigrations(map[string]struct{}{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 2)
	assert.Equal(t, "00000000000001_assetradar_schema.up.sql", all[0])
	assert.Equal(t, "00000000000002_assetradar_seed.up.sql", all[1])

	rest, err := pendingMigrations(map[string]struct{}{"00000000000001": {}})
	require.NoError(t, err)
	assert.NotContains(t, rest, "00000000000001_assetradar_schema.up.sql")
	assert.Len(t, rest, len(all)-1)

	for _, name := range all {
		content, err := migrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		assert.NotEmpty(t, splitSQLStatements(string(content)), name)
	}
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("noop", nil))
	assert.ErrorIs(t, mapError("get", pgx.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, mapError("insert", &pgconn.PgError{Code: "23505", ConstraintName: "hardware_unique_id_key"}), store.ErrConflict)
	assert.ErrorIs(t, mapError("insert", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23503"})), store.ErrNotFound)

	other := errors.New("boom")
	err := mapError("op", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestExpectRow(t *testing.T) {
	assert.NoError(t, expectRow("update", pgconn.NewCommandTag("UPDATE 1"), nil))
	assert.ErrorIs(t, expectRow("update", pgconn.NewCommandTag("UPDATE 0"), nil), store.ErrNotFound)
}

func TestBuildHardwareFilter(t *testing.T) {
	where, args := buildHardwareFilter(models.HardwareFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	responsible := int64(7)
	where, args = buildHardwareFilter(models.HardwareFilter{Status: models.HardwareActive, ResponsibleID: &responsible})
	assert.Equal(t, " WHERE status = $1 AND responsible_id = $2", where)
	assert.Equal(t, []interface{}{"active", int64(7)}, args)
}

func TestBuildIncidentQuery(t *testing.T) {
	id := int64(3)

	query, args := buildIncidentQuery(models.IncidentFilter{
		AssetModel:  models.ModelHardware,
		AssetID:     &id,
		Fingerprint: "compliance:3",
		Limit:       5,
	})

	assert.Contains(t, query, "WHERE asset_model = $1 AND asset_id = $2 AND fingerprint = $3")
	assert.Contains(t, query, "ORDER BY id DESC LIMIT $4")
	assert.Equal(t, []interface{}{"hardware", int64(3), "compliance:3", 5}, args)

	query, args = buildIncidentQuery(models.IncidentFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.NotContains(t, query, "LIMIT")
	assert.Empty(t, args)
}

func TestBuildReplaceLinks(t *testing.T) {
	batch := buildReplaceLinks(hardwareIPLinks, 9, []int64{4, 2, 4})
	require.Equal(t, 3, batch.Len())

	assert.Equal(t, "DELETE FROM hardware_ips WHERE hardware_id = $1", batch.QueuedQueries[0].SQL)
	assert.Contains(t, batch.QueuedQueries[1].SQL, "position")
	assert.Equal(t, []any{int64(9), int64(4), 0}, batch.QueuedQueries[1].Arguments)
	assert.Equal(t, []any{int64(9), int64(2), 1}, batch.QueuedQueries[2].Arguments)

	batch = buildReplaceLinks(profileSoftwareLinks, 1, nil)
	assert.Equal(t, 1, batch.Len())
}

func TestRecurrenceArgs(t *testing.T) {
	freq, interval, count, until := recurrenceArgs(nil)
	assert.Nil(t, freq)
	assert.Equal(t, 1, interval)
	assert.Zero(t, count)
	assert.Nil(t, until)

	freq, interval, count, _ = recurrenceArgs(&models.Recurrence{Freq: models.FreqWeekly, Count: 4})
	require.NotNil(t, freq)
	assert.Equal(t, "weekly", *freq)
	assert.Equal(t, 1, interval)
	assert.Equal(t, 4, count)
}
