package shared

// Versions describes the build of the running binary.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// GenericResult is the per-invocation outcome of a command.
type GenericResult struct {
	Args    interface{} `json:"args"`
	Result  interface{} `json:"result"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

// GenericLaunchesResult groups the results of one or more invocations.
type GenericLaunchesResult struct {
	Launches []GenericResult `json:"launches"`
}
