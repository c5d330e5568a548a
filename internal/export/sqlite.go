package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// openSQLite opens a SQLite database at the given path and configures WAL mode.
func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return db, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	started_at        DATETIME NOT NULL,
	observations_src  TEXT NOT NULL,
	regions_src       TEXT NOT NULL,
	target_crs        TEXT NOT NULL,
	boundary          TEXT NOT NULL,
	measurement_field TEXT NOT NULL,
	test_method       TEXT,
	u_statistic       REAL,
	p_value           REAL,
	alpha             REAL,
	warnings          TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS observations (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	idx            INTEGER NOT NULL,
	partition      TEXT NOT NULL,
	measurement    REAL,
	quantile_class INTEGER,
	regions        TEXT NOT NULL,
	geom           BLOB,
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS group_stats (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	partition TEXT NOT NULL,
	count     INTEGER NOT NULL,
	missing   INTEGER NOT NULL,
	mean      REAL,
	median    REAL,
	std       REAL,
	se        REAL,
	min       REAL,
	max       REAL,
	PRIMARY KEY (run_id, partition)
);

CREATE TABLE IF NOT EXISTS region_areas (
	run_id TEXT NOT NULL REFERENCES runs(id),
	site   TEXT NOT NULL,
	area   REAL NOT NULL,
	parts  INTEGER NOT NULL,
	PRIMARY KEY (run_id, site)
);

CREATE INDEX IF NOT EXISTS idx_observations_partition ON observations(run_id, partition);
`

// ToSQLite appends res to the SQLite database at path, creating the schema
// when needed. Observation locations are stored as EWKB points, NULL when
// absent.
func ToSQLite(ctx context.Context, path string, res *analysis.Result) error {
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRun(ctx, tx, res); err != nil {
		return err
	}
	if err := insertObservations(ctx, tx, res); err != nil {
		return err
	}
	if err := insertGroups(ctx, tx, res); err != nil {
		return err
	}
	for _, a := range res.AreaBySite {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO region_areas (run_id, site, area, parts) VALUES (?, ?, ?, ?)`,
			res.RunID, a.Name, a.Area, a.Parts,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert area %q", a.Name)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func insertRun(ctx context.Context, tx *sql.Tx, res *analysis.Result) error {
	warnings, err := json.Marshal(res.Warnings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal warnings")
	}

	var (
		method sql.NullString
		u, p   sql.NullFloat64
	)
	if t := res.Test; t != nil {
		method = sql.NullString{String: t.Method, Valid: true}
		u = nullFloat(t.Statistic)
		p = nullFloat(t.P)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, observations_src, regions_src, target_crs, boundary,
			measurement_field, test_method, u_statistic, p_value, alpha, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt.Format(time.RFC3339), res.Observations.Source, res.Regions.Source,
		res.TargetCRS.String(), res.Boundary.String(), res.MeasurementField,
		method, u, p, res.Alpha, string(warnings),
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func insertObservations(ctx context.Context, tx *sql.Tx, res *analysis.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (run_id, idx, partition, measurement, quantile_class, regions, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare observation insert")
	}
	defer stmt.Close() //nolint:errcheck

	srid := res.TargetCRS.SRID()
	for _, o := range res.Classification.All {
		var wkb any
		if o.Located() {
			pt := geom.NewPointFlat(geom.XY, []float64{o.Location.X(), o.Location.Y()}).SetSRID(srid)
			b, err := ewkb.Marshal(pt, ewkb.NDR)
			if err != nil {
				return eris.Wrapf(err, "sqlite: encode observation %d", o.Index)
			}
			wkb = b
		}

		regions := o.Regions
		if regions == nil {
			regions = []string{}
		}
		names, err := json.Marshal(regions)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal regions of observation %d", o.Index)
		}

		var class sql.NullInt64
		if c, ok := quantileClass(o.Measurement, res.Breaks).(int); ok {
			class = sql.NullInt64{Int64: int64(c), Valid: true}
		}

		var value sql.NullFloat64
		if o.Measurement.Valid {
			value = nullFloat(o.Measurement.Value)
		}

		if _, err := stmt.ExecContext(ctx, res.RunID, o.Index, string(o.Partition), value, class, string(names), wkb); err != nil {
			return eris.Wrapf(err, "sqlite: insert observation %d", o.Index)
		}
	}
	return nil
}

func insertGroups(ctx context.Context, tx *sql.Tx, res *analysis.Result) error {
	for _, p := range survey.Partitions {
		s := res.Groups[p]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_stats (run_id, partition, count, missing, mean, median, std, se, min, max)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, string(p), s.Count, s.Missing,
			nullFloat(s.Mean), nullFloat(s.Median), nullFloat(s.Std), nullFloat(s.StdErr),
			nullFloat(s.Min), nullFloat(s.Max),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert group %s", p)
		}
	}
	return nil
}

// nullFloat maps NaN and infinities to NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
