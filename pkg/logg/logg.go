package logg

// Structured log field names shared by every layer.
const (
	Layer     = "layer"
	Operation = "op"
	RunID     = "run_id"
	URL       = "url"
	Stem      = "stem"
	Attempt   = "attempt"
	State     = "state"
	Engine    = "engine"
	Path      = "path"
	Elements  = "elements"
)
