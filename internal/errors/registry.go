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
	// Configuration (R100-R199)
	"R100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "The file passed with --config does not exist.",
	},
	"R101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file is not valid YAML or a value has the wrong type.",
	},
	"R102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
	},

	// CLI (R200-R299)
	"R200": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command line flag has a value the command cannot use.",
	},

	// Snapshots (R300-R399)
	"R300": {
		Category: CategorySnapshot,
		Message:  "No snapshot store configured",
		Detail:   "Set snapshot.dir for a local directory or snapshot.bucket for S3.",
	},
	"R301": {
		Category: CategorySnapshot,
		Message:  "Snapshot export failed",
		Detail:   "The snapshot could not be written to its store.",
	},

	// Inspector (R400-R499)
	"R400": {
		Category: CategoryInspector,
		Message:  "Inspector server failed",
		Detail:   "The inspector HTTP server stopped with an error.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
