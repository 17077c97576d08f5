// Package build exports a project for deployment.
//
// An export runs the same full build as the dev server startup, then
// copies the source tree into build.dest:
//
//   - files under build.ignoreDirs are skipped
//   - files are kept when their extension is in build.exts or they are
//     listed in build.includeFiles
//   - pages and templates are only exported from the html directory
//   - templates are rendered and written as .html
//
// # Usage
//
//	builder := build.New(cfg, build.Options{Env: "Production"})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Exported %d files in %s\n", len(result.Manifest), result.Duration)
//
// # Output Structure
//
//	dist/
//	├── .gitignore         # "*", keeps exports out of version control
//	├── index.html
//	├── about.html         # rendered from about.php
//	├── css/app.css
//	└── manifest.json      # path -> blake3 fingerprint
package build
