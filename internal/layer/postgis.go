package layer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
)

// Querier is the subset of pgxpool.Pool used to read PostGIS layers.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// identRe matches a bare or schema-qualified SQL identifier.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostGISSource names a polygon table and its columns.
type PostGISSource struct {
	Table      string
	NameColumn string
	GeomColumn string
}

// quoteIdent validates and quotes a possibly schema-qualified identifier.
func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", eris.Errorf("layer: invalid identifier %q", name)
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize(), nil
}

// ReadPostGIS loads every row of src as a feature. All geometries must carry
// the same SRID, which becomes the layer CRS.
func ReadPostGIS(ctx context.Context, q Querier, src PostGISSource) (*Layer, error) {
	if src.GeomColumn == "" {
		src.GeomColumn = "geom"
	}
	path := "postgis:" + src.Table

	table, err := quoteIdent(src.Table)
	if err != nil {
		return nil, failure.NewLoadError(path, err)
	}
	nameCol, err := quoteIdent(src.NameColumn)
	if err != nil {
		return nil, failure.NewSchemaError(path, err)
	}
	geomCol, err := quoteIdent(src.GeomColumn)
	if err != nil {
		return nil, failure.NewSchemaError(path, err)
	}

	sql := fmt.Sprintf(`SELECT %s::text, ST_AsEWKB(%s) FROM %s ORDER BY 1`, nameCol, geomCol, table)
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, failure.NewLoadError(path, eris.Wrap(err, "layer: query postgis table"))
	}
	defer rows.Close()

	l := &Layer{Path: path, Fields: []string{src.NameColumn}}
	srid := -1

	for rows.Next() {
		var (
			name *string
			wkb  []byte
		)
		if err := rows.Scan(&name, &wkb); err != nil {
			return nil, failure.NewLoadError(path, eris.Wrap(err, "layer: scan postgis row"))
		}

		idx := len(l.Features)
		props := map[string]any{src.NameColumn: nil}
		if name != nil {
			props[src.NameColumn] = *name
		}

		if wkb == nil {
			l.Features = append(l.Features, Feature{Index: idx, Properties: props})
			continue
		}

		g, err := ewkb.Unmarshal(wkb)
		if err != nil {
			return nil, failure.NewLoadError(path, eris.Wrapf(err, "layer: decode ewkb of row %d", idx))
		}
		switch {
		case srid < 0:
			srid = g.SRID()
		case g.SRID() != srid:
			return nil, failure.NewProjectionError(path, eris.Errorf("layer: mixed SRIDs %d and %d", srid, g.SRID()))
		}

		l.Features = append(l.Features, Feature{Index: idx, Geometry: g, Properties: props})
	}
	if err := rows.Err(); err != nil {
		return nil, failure.NewLoadError(path, eris.Wrap(err, "layer: iterate postgis rows"))
	}

	if srid > 0 {
		l.CRS = crs.FromSRID(srid)
	}

	zap.L().Info("postgis layer loaded",
		zap.String("component", "layer"),
		zap.String("table", src.Table),
		zap.Int("features", len(l.Features)),
		zap.Stringer("crs", l.CRS),
	)
	return l, nil
}
