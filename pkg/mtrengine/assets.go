package mtrengine

import _ "embed"

// MapSVG is the bundled network map.
//
//go:embed data/map.svg
var MapSVG []byte

// LinesJSON is the bundled legend feed.
//
//go:embed data/lines.json
var LinesJSON []byte
