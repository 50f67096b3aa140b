// features.go - build-time feature reporting
//
// Build-tag-selected backends register themselves via init() so
// --version can report which display backend this binary was built
// with, without hand-maintaining a switch on build tags here.

package main

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

const appVersion = "0.1.0"

// featureSet dedupes registrations; a backend's init() running more
// than once (tests constructing multiple headless instances, say)
// must not produce repeated lines in the report.
var featureSet = map[string]struct{}{}

func registerFeature(name string) { featureSet[name] = struct{}{} }

func sortedFeatures() []string {
	names := make([]string, 0, len(featureSet))
	for name := range featureSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// versionReport renders the --version banner as a string so it can be
// exercised by tests without capturing stdout.
func versionReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", appName, appVersion)
	fmt.Fprintf(&b, "  Go version: %s\n", runtime.Version())
	fmt.Fprintf(&b, "  OS/Arch:    %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	b.WriteString("Compiled features:\n")
	features := sortedFeatures()
	if len(features) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, name := range features {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	return b.String()
}

func printVersion() {
	fmt.Print(versionReport())
}
