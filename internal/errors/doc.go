// Package errors provides coded, actionable error messages for Lalilo.
//
// Every error carries a code (e.g. "E100") that maps to a short message,
// a longer explanation and a category. Categories follow the failure
// taxonomy of the dev server:
//   - config: invalid project configuration (fatal at startup)
//   - io: missing files, unreadable sources, unwritable outputs
//   - compile: stylesheet or icon font failures
//   - port: no free port in the configured range
//   - render: template renderer failures
//
// # Usage
//
//	err := errors.New("E300").
//	    WithLocation("scss/main.scss", 12, 4).
//	    WithSuggestion("Check the selector above the highlighted line")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E300: Stylesheet compilation failed
//	//
//	//   scss/main.scss:12:4
//	//
//	//     10 │ .a {
//	//     11 │   color: red
//	//   → 12 │   .b { }
//	//        │   ^
//	//     13 │ }
//	//
//	//   Hint: Check the selector above the highlighted line
package errors
