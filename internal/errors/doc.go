// Package errors provides structured, actionable errors for the rvar CLI.
//
// Every error carries a code registered in this package that maps to a
// category, a short message and a longer explanation. Errors raised while
// reading a configuration file can point at the offending line, which is
// printed with its surrounding lines.
//
// # Error Categories
//
//   - config: the configuration file is missing, malformed or invalid
//   - cli: bad flags or arguments
//   - snapshot: a snapshot could not be written to its store
//   - inspector: the inspector server failed
//
// # Usage
//
//	err := errors.New("R101").
//	    WithLocation("rvar.yaml", 4, 0).
//	    WithSuggestion("Durations are written like 16ms or 1s")
//
//	errors.PrintError(err)
//	// ERROR R101: Invalid configuration file
//	//
//	//   rvar.yaml:4
//	//
//	//       2 │ runtime:
//	//       3 │   time_scale: 1
//	//   →   4 │   frame_duration: fast
//	//       5 │ inspector:
//	//
//	//   Hint: Durations are written like 16ms or 1s
package errors
