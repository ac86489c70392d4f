package overpass

import (
	"fmt"
	"strconv"
	"strings"
)

// Around renders an (around:radius,lat,lon) filter.
func Around(radiusM, lat, lon float64) string {
	return fmt.Sprintf("(around:%s,%s,%s)", num(radiusM), num(lat), num(lon))
}

// BBox renders a (south,west,north,east) filter.
func BBox(south, west, north, east float64) string {
	return fmt.Sprintf("(%s,%s,%s,%s)", num(south), num(west), num(north), num(east))
}

// Union renders a JSON union query over the given statements, each of which
// must end in its spatial filter. timeout is in seconds; recurse appends
// member nodes of ways.
func Union(timeout int, statements []string, recurse bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeout)
	for _, s := range statements {
		b.WriteString("  ")
		b.WriteString(s)
		b.WriteString(";\n")
	}
	b.WriteString(");\nout body;\n")
	if recurse {
		b.WriteString(">;\nout skel qt;\n")
	}
	return b.String()
}

// NodesAndWays returns node and way statements for one tag filter.
func NodesAndWays(filter, spatial string) []string {
	return []string{"node" + filter + spatial, "way" + filter + spatial}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
