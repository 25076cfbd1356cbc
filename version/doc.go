// Package version reports the tapioca build.
//
// Version, commit, branch and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/tapioca/version.Version=1.0.0" ./cmd/tapioca
package version
