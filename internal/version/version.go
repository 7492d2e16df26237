package version

// Version is the current version of ChitChat.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/venudhannoju-glitch/ChitChat/internal/version.Version=v1.0.0'"
var Version = "dev"
