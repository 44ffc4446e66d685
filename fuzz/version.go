package fuzz

// Version information for the fuzzing runtime.
const (
	// Version is the current version of the runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the fuzzing runtime.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Protocol describes the supervisor protocol generation.
	Protocol string

	// MapSize is the feedback map capacity in bytes.
	MapSize int
}

// GetInfo returns information about the fuzzing runtime.
//
// Example:
//
//	info := fuzz.GetInfo()
//	fmt.Printf("fuzzrt %s (%s, map %d)\n", info.Version, info.Protocol, info.MapSize)
func GetInfo() Info {
	return Info{
		Version:  Version,
		Protocol: "fork-server v1 (4-byte words, fds 198/199)",
		MapSize:  1 << 16,
	}
}
