package perftiming

// ProcessTiming is a snapshot of process-level timing.
//
// All durations are milliseconds. Offsets are relative to the process start,
// which is also the origin used by StartTime.
type ProcessTiming struct {
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	// ProcessStart is the process start time in milliseconds since the Unix
	// epoch.
	ProcessStart float64 `json:"processStart"`
	// RuntimeInit is the offset at which the timing package was initialized.
	RuntimeInit float64 `json:"runtimeInit"`
	// TimelineStart is the offset at which the timeline was created.
	TimelineStart float64 `json:"timelineStart"`
	Goroutines    int     `json:"goroutines"`
	NumGC         uint32  `json:"numGC"`
	GCPauseTotal  float64 `json:"gcPauseTotal"`
}

// SystemInformation describes the host the process ran on.
type SystemInformation struct {
	Argv     []string   `json:"argv"`
	CPUs     []CPU      `json:"cpus"`
	LoadAvg  [3]float64 `json:"loadavg"`
	Memory   Memory     `json:"memory"`
	Network  Network    `json:"network"`
	OS       string     `json:"os"`
	Platform string     `json:"platform"`
	Shell    string     `json:"shell"`
	// Uptime is the host uptime in seconds.
	Uptime float64 `json:"uptime"`
}

// CPU describes one logical processor.
type CPU struct {
	Model string `json:"model"`
	// Speed is in MHz.
	Speed float64 `json:"speed"`
}

// Memory is a snapshot of host memory, in bytes.
type Memory struct {
	Free            uint64  `json:"free"`
	Total           uint64  `json:"total"`
	Usage           uint64  `json:"usage"`
	UsagePercentage float64 `json:"usagePercentage"`
}

// Network describes the host's network identity.
type Network struct {
	Hostname   string                        `json:"hostname"`
	Interfaces map[string][]InterfaceAddress `json:"interfaces"`
}

// InterfaceAddress is one address assigned to a network interface.
type InterfaceAddress struct {
	Address  string `json:"address"`
	Netmask  string `json:"netmask"`
	Family   string `json:"family"`
	MAC      string `json:"mac"`
	Internal bool   `json:"internal"`
}

// Document is the merged output persisted once per process.
//
// Metrics is keyed by package identity. Each key holds one Metrics value per
// registered instance with that identity, so identities that collide are
// appended rather than overwritten.
type Document struct {
	ProcessTiming     ProcessTiming        `json:"nodeTiming"`
	SystemInformation SystemInformation    `json:"systemInformation"`
	Metrics           map[string][]Metrics `json:"metrics"`
}
