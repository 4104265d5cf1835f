package entities

import "fmt"

// VersionInfo is the version of the hosted library as reported by the guest.
type VersionInfo struct {
	Full  string `json:"full"`
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Patch int    `json:"patch"`
}

// Short returns MAJOR.MINOR.PATCH.
func (v VersionInfo) Short() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
