package version

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed version.json
var raw []byte

type Info struct {
	Version string `json:"version"`
}

// Load parses the embedded version document. A malformed document
// degrades to 0.0.0 rather than failing startup.
func Load() Info {
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		log.Printf("warning: could not parse version.json: %v", err)
		return Info{Version: "0.0.0"}
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}
	return info
}
