// Package buildinfo carries version metadata set with -ldflags "-X".
package buildinfo

import (
    "runtime"
    "runtime/debug"
)

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

func Info() map[string]string {
    info := map[string]string{
        "version":   Version,
        "commit":    Commit,
        "builtAt":   BuiltAt,
        "goVersion": runtime.Version(),
    }
    if Commit == "" {
        if bi, ok := debug.ReadBuildInfo(); ok {
            for _, s := range bi.Settings {
                if s.Key == "vcs.revision" { info["commit"] = s.Value }
            }
        }
    }
    return info
}

// String is the one-line form printed by the CLI.
func String() string {
    i := Info()
    s := "dronenav " + i["version"]
    if i["commit"] != "" { s += " (" + i["commit"] + ")" }
    return s + " " + i["goVersion"]
}
