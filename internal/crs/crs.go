// Package crs identifies coordinate reference systems and reprojects go-geom
// geometries between the systems the survey tooling supports.
package crs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CRS is a normalized coordinate reference system identifier such as
// "EPSG:4326". The zero value means undeclared.
type CRS string

// Supported reference systems.
const (
	Undeclared  CRS = ""
	WGS84       CRS = "EPSG:4326"
	WebMercator CRS = "EPSG:3857"
)

// aliases maps alternate codes onto the supported systems.
var aliases = map[int]CRS{
	4326:   WGS84,
	3857:   WebMercator,
	3785:   WebMercator,
	900913: WebMercator,
	102100: WebMercator,
	102113: WebMercator,
}

var (
	epsgCodeRe   = regexp.MustCompile(`(?i)^epsg:+(\d+)$`)
	authorityRe  = regexp.MustCompile(`(?i)\b(?:AUTHORITY|ID)\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)
	wgs84DatumRe = regexp.MustCompile(`(?i)\b(?:DATUM|ENSEMBLE)\[\s*"(?:D_)?(?:WGS[_ ]?(?:19)?84|World Geodetic System 1984)\b[^"]*"`)
)

// String returns the identifier, or "undeclared".
func (c CRS) String() string {
	if c == Undeclared {
		return "undeclared"
	}
	return string(c)
}

// Declared reports whether c names a reference system.
func (c CRS) Declared() bool { return c != Undeclared }

// Geographic reports whether c uses longitude/latitude degrees.
func (c CRS) Geographic() bool { return c == WGS84 }

// SRID returns the numeric EPSG code, or 0 when c is not an EPSG system.
func (c CRS) SRID() int {
	m := epsgCodeRe.FindStringSubmatch(string(c))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// FromSRID returns the CRS for an EPSG code, normalizing known aliases.
func FromSRID(srid int) CRS {
	if c, ok := aliases[srid]; ok {
		return c
	}
	return CRS("EPSG:" + strconv.Itoa(srid))
}

// Parse normalizes an "EPSG:n" code, an OGC URN, or an ESRI/OGC WKT string.
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Undeclared, eris.New("crs: empty reference system")
	}

	upper := strings.ToUpper(s)
	switch upper {
	case "CRS84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84", "URN:OGC:DEF:CRS:OGC::CRS84", "WGS84":
		return WGS84, nil
	}

	if m := epsgCodeRe.FindStringSubmatch(s); m != nil {
		return fromCode(m[1])
	}

	if strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:") {
		parts := strings.Split(s, ":")
		return fromCode(parts[len(parts)-1])
	}

	if isWKT(upper) {
		return parseWKT(s)
	}

	return Undeclared, eris.Errorf("crs: unrecognized reference system %q", s)
}

func fromCode(code string) (CRS, error) {
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return Undeclared, eris.Errorf("crs: invalid EPSG code %q", code)
	}
	return FromSRID(n), nil
}

func isWKT(upper string) bool {
	for _, p := range []string{"GEOGCS[", "PROJCS[", "GEOGCRS[", "PROJCRS[", "GEODCRS["} {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// parseWKT handles .prj contents. The root node's own authority code wins;
// otherwise the datum and projection names are matched.
func parseWKT(wkt string) (CRS, error) {
	upper := strings.ToUpper(wkt)
	projected := strings.HasPrefix(upper, "PROJ")

	if code, ok := rootAuthority(wkt); ok {
		c, err := fromCode(code)
		if err == nil && (!projected || !isGeographicCode(c.SRID())) {
			return c, nil
		}
	}

	if projected {
		for _, marker := range []string{"MERCATOR_AUXILIARY_SPHERE", "PSEUDO-MERCATOR", "PSEUDO_MERCATOR", "POPULAR VISUALISATION"} {
			if strings.Contains(upper, marker) {
				return WebMercator, nil
			}
		}
		return Undeclared, eris.Errorf("crs: unsupported projected system %s", wktName(wkt))
	}

	if wgs84DatumRe.MatchString(wkt) {
		return WGS84, nil
	}
	return Undeclared, eris.Errorf("crs: unsupported geographic system %s", wktName(wkt))
}

// rootAuthority returns the EPSG code of the AUTHORITY or ID node that is a
// direct child of the outermost WKT node. Codes of nested datums, spheroids
// and units are ignored.
func rootAuthority(wkt string) (string, bool) {
	var code string
	for _, m := range authorityRe.FindAllStringSubmatchIndex(wkt, -1) {
		if wktDepth(wkt[:m[0]]) == 1 {
			code = wkt[m[2]:m[3]]
		}
	}
	return code, code != ""
}

// wktDepth returns the bracket nesting depth at the end of prefix, skipping
// quoted names.
func wktDepth(prefix string) int {
	depth := 0
	quoted := false
	for _, r := range prefix {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		}
	}
	return depth
}

func isGeographicCode(srid int) bool {
	return srid >= 4000 && srid < 5000
}

// wktName extracts the quoted name of the outermost WKT node.
func wktName(wkt string) string {
	start := strings.Index(wkt, `"`)
	if start < 0 {
		return "(unnamed)"
	}
	end := strings.Index(wkt[start+1:], `"`)
	if end < 0 {
		return "(unnamed)"
	}
	return strconv.Quote(wkt[start+1 : start+1+end])
}
