package version

// Version is the current version of the relay binaries.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/JaykaiDos/signaling-server/internal/version.Version=v1.0.0'"
var Version = "dev"
