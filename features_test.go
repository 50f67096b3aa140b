package main

import (
	"strings"
	"testing"
)

func TestVersionReport_ContainsBannerAndFeatures(t *testing.T) {
	registerFeature("test:fixture")
	report := versionReport()

	if !strings.Contains(report, appName) {
		t.Fatalf("report missing app name: %q", report)
	}
	if !strings.Contains(report, appVersion) {
		t.Fatalf("report missing version: %q", report)
	}
	if !strings.Contains(report, "test:fixture") {
		t.Fatalf("report missing registered feature: %q", report)
	}
}

func TestRegisterFeature_DedupesRepeatedRegistrations(t *testing.T) {
	before := len(sortedFeatures())
	registerFeature("test:dedupe")
	registerFeature("test:dedupe")
	after := len(sortedFeatures())

	if after != before+1 {
		t.Fatalf("expected exactly one new feature after two identical registrations, got %d -> %d", before, after)
	}
}
