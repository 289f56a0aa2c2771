// Package contrib defines the values shared by every stage of the heat-map
// pipeline:
//
//   - Day: one calendar day with its contribution count, intensity level and
//     the palette color resolved for that level
//   - Theme and Palette: the two color schemes and the level->color tables
//   - Error: the error taxonomy surfaced to callers (bad input, bad config,
//     not found, rate limited, everything else)
//
// These types are used by the fetcher, the grid builder, the HTTP service and
// the CLI so that the JSON contract stays the same everywhere.
package contrib
