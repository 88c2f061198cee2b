package main

import "runtime/debug"

// Version reports the module version baked into the binary, or "devel"
// for local builds.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "devel"
}
