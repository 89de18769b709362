package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// set with -ldflags "-X github.com/viert/vigiconf/cli.appVersion=..."
var (
	appVersion = ""
	appBuild   = ""
)

func version() string {
	v := appVersion
	if v == "" {
		v = "dev"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if appBuild != "" {
		v += "-" + appBuild
	}
	return fmt.Sprintf("%s (%s %s/%s)", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
