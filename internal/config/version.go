package config

// Version is the pathconvert binary version.
// Set at build time via: -ldflags "-X github.com/pathconvert/pathconvert/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
