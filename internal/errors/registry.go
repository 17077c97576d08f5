package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (E100-E199)

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No lalilo.json was found in this directory or any parent.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "lalilo.json could not be parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Directory is not accessible",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid port range",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid environment",
		Detail:   "Environment must be one of Development, Testing, Staging or Production.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid loader",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Configuration file already exists",
	},
	"E107": {
		Category: CategoryCLI,
		Message:  "Unknown starter template",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Unsafe export directory",
		Detail:   "An export clears build.dest first.",
	},

	// Port (E200-E299)

	"E200": {
		Category: CategoryPort,
		Message:  "No free port in range",
	},
	"E201": {
		Category: CategoryPort,
		Message:  "Could not start listener",
	},

	// IO and compile (E300-E399)

	"E300": {
		Category: CategoryCompile,
		Message:  "Stylesheet compilation failed",
	},
	"E301": {
		Category: CategoryCompile,
		Message:  "Icon font build failed",
	},
	"E302": {
		Category: CategoryIO,
		Message:  "Source file not readable",
	},
	"E303": {
		Category: CategoryIO,
		Message:  "Output not writable",
	},
	"E304": {
		Category: CategoryIO,
		Message:  "Icon stylesheet missing",
		Detail:   "Every icon set directory needs a style.css generated by the icon font tool.",
	},
	"E305": {
		Category: CategoryCompile,
		Message:  "Loader failed",
	},

	// Render (E400-E499)

	"E400": {
		Category: CategoryRender,
		Message:  "Template renderer failed",
	},
	"E401": {
		Category: CategoryRender,
		Message:  "Template output too large",
	},
}

// Lookup returns the template for an error code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered error codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
