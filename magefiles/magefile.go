//go:build mage

// Package main provides build targets for docguard using Mage.
//
// Usage:
//
//	mage build          Compile the docguard binary to bin/
//	mage test           Run all tests
//	mage testShort      Run tests without the race detector
//	mage lint           Run go vet and golangci-lint
//	mage check          Build, then run docguard check on this repository
//	mage schema         Regenerate the config JSON schema
//	mage clean          Remove build artifacts
//	mage install        Install docguard to GOPATH/bin
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "docguard"
	binaryDir  = "bin"
	cmdDir     = "./cmd/docguard"
	versionPkg = "github.com/jingkaihe/docguard/pkg/version"
	schemaFile = "docs/config.schema.json"
)

var Default = Build

// ldflags stamps the version package from git, falling back to "dev".
func ldflags() string {
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	return strings.Join([]string{
		"-s", "-w",
		fmt.Sprintf("-X %s.Version=%s", versionPkg, version),
		fmt.Sprintf("-X %s.GitCommit=%s", versionPkg, commit),
	}, " ")
}

// Build compiles the docguard binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// TestShort runs all tests without the race detector.
func TestShort() error {
	return sh.RunV(binGo, "test", "./...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Check builds docguard and validates this repository's own docs.
func Check() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "check", "--root", ".")
}

// Schema regenerates the JSON schema of .docguard.yaml.
func Schema() error {
	mg.Deps(Build)
	out, err := sh.Output(filepath.Join(binaryDir, binaryName), "config", "schema")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(schemaFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(schemaFile, []byte(out+"\n"), 0o644)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
