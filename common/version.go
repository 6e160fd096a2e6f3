package common

// Version is the service version, overridden at build time via
// -ldflags "-X github.com/ruteri/identity-registry-backend/common.Version=v1.2.3".
var Version = "dev"
