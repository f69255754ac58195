// Package main provides tests for the datagov CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/datagov/internal/cli"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	if err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "datagov") {
		t.Errorf("version output should contain 'datagov', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	output := buf.String()
	expectedCommands := []string{"run", "validate", "catalog", "access", "lineage", "runs", "init"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"init", dir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init command error = %v", err)
	}

	for _, f := range []string{"datagov.yaml", "data/raw/customers.csv", "rules/consent.star"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("init should create %s: %v", f, err)
		}
	}
}

func TestInitCommandExistingConfig(t *testing.T) {
	dir := t.TempDir()

	first := cli.NewRootCmd()
	first.SetOut(new(bytes.Buffer))
	first.SetErr(new(bytes.Buffer))
	first.SetArgs([]string{"init", dir})
	if err := first.Execute(); err != nil {
		t.Fatalf("first init error = %v", err)
	}

	second := cli.NewRootCmd()
	second.SetOut(new(bytes.Buffer))
	second.SetErr(new(bytes.Buffer))
	second.SetArgs([]string{"init", dir})
	if err := second.Execute(); err == nil {
		t.Error("second init without --force should fail")
	}

	third := cli.NewRootCmd()
	third.SetOut(new(bytes.Buffer))
	third.SetErr(new(bytes.Buffer))
	third.SetArgs([]string{"init", dir, "--force"})
	if err := third.Execute(); err != nil {
		t.Errorf("init --force error = %v", err)
	}
}

func TestCatalogCommand(t *testing.T) {
	dir := t.TempDir()

	initCmd := cli.NewRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetErr(new(bytes.Buffer))
	initCmd.SetArgs([]string{"init", dir})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("init error = %v", err)
	}

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"catalog", "--project-dir", dir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("catalog command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "customers") {
		t.Errorf("catalog output should list the customers asset, got: %s", output)
	}
	if !strings.Contains(output, "confidential") {
		t.Errorf("catalog output should show the sensitivity label, got: %s", output)
	}
}

func TestAccessCheckCommand(t *testing.T) {
	dir := t.TempDir()

	initCmd := cli.NewRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetErr(new(bytes.Buffer))
	initCmd.SetArgs([]string{"init", dir})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("init error = %v", err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "allowed",
			args: []string{"access", "check", "analyst", "customers", "read"},
			want: "allow",
		},
		{
			name: "denied role",
			args: []string{"access", "check", "intern", "customers", "read"},
			want: "deny",
		},
		{
			name: "denied permission",
			args: []string{"access", "check", "analyst", "customers", "write"},
			want: "deny",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := cli.NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append(tt.args, "--project-dir", dir))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("access check error = %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Errorf("access check output should start with %q, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"frobnicate"})

	if err := cmd.Execute(); err == nil {
		t.Error("unknown command should return an error")
	}
}
