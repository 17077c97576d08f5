// Package templates provides starter sites for new projects.
//
// # Available Templates
//
//   - minimal: one page, one stylesheet
//   - full: several pages, stylesheet partials and an icon set folder
//
// # Usage
//
//	tmpl, err := templates.Get("full")
//	if err != nil {
//	    return err
//	}
//	created, err := tmpl.Create(root, templates.Config{ProjectName: "site", Entry: "src"})
//
// # Template Variables
//
//	{{.ProjectName}}  - Name of the project
//	{{.Entry}}        - Entry directory, relative to the project root
//	{{.Dest}}         - Export directory, relative to the project root
package templates
