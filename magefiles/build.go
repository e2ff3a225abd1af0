// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

// Package main provides build targets for kennel using Mage.
//
//	mage build        compile bin/kennel
//	mage test:all     run every test
//	mage test:race    run tests with the race detector
//	mage test:cover   write coverage.out and print per-function coverage
//	mage lint         run gofmt and golangci-lint
//	mage clean        remove build artifacts
//	mage install      install kennel to GOPATH/bin
//	mage stats        print Go LOC and documentation word counts
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "kennel"
	binaryDir  = "bin"
	cmdDir     = "./cmd/kennel"
	versionVar = "github.com/mesh-intelligence/kennel/internal/cli.Version"
)

// version returns the release stamped into the binary: $KENNEL_VERSION, or
// the nearest git tag.
func version() string {
	if v := os.Getenv("KENNEL_VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || out == "" {
		return ""
	}
	return strings.TrimPrefix(out, "v")
}

// Build compiles the kennel binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := version(); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
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
