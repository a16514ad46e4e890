package config

// Version is the nexus binary version.
// Set at build time via: -ldflags "-X github.com/studynexus/nexus/internal/config.Version=<tag>"
var Version = "dev"
