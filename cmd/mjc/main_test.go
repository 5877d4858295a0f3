package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/microjava/manifest"
	"github.com/chazu/microjava/pkg/bytecode"
)

const goodProgram = `program Hello
	int n;
{
	void main() {
		n = 6 * 7;
		print(n);
	}
}
`

const badProgram = `program Bad
{
	void main() {
		x = 1;
		y = 2;
	}
}
`

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runMJC(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCompileWritesObject(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Hello.mj", goodProgram)

	code, stdout, stderr := runMJC(src)
	if code != 0 {
		t.Fatalf("exit = %d, stdout %q, stderr %q", code, stdout, stderr)
	}
	if stdout != "0 errors found.\n" {
		t.Errorf("stdout = %q, want the error summary only", stdout)
	}

	obj, err := bytecode.ReadFile(filepath.Join(dir, "Hello.obj"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if obj.DataSize != 1 {
		t.Errorf("DataSize = %d, want 1", obj.DataSize)
	}
	for _, ext := range []string{".lst", ".dbg"} {
		if _, err := os.Stat(filepath.Join(dir, "Hello"+ext)); err == nil {
			t.Errorf("Hello%s written without being requested", ext)
		}
	}
}

func TestCompileExtraOutputs(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Hello.mj", goodProgram)
	out := filepath.Join(dir, "out", "prog.obj")
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runMJC("-o", out, "-S", "-g", src)
	if code != 0 {
		t.Fatalf("exit = %d, stdout %q, stderr %q", code, stdout, stderr)
	}

	listing, err := os.ReadFile(filepath.Join(dir, "out", "prog.lst"))
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	for _, want := range []string{"; === Hello ===", "main:", "const 42"} {
		if !strings.Contains(string(listing), want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}

	obj, err := bytecode.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	d, err := bytecode.ReadDebugFile(filepath.Join(dir, "out", "prog.dbg"))
	if err != nil {
		t.Fatalf("ReadDebugFile: %v", err)
	}
	if !d.Matches(obj) {
		t.Error("debug sidecar does not match its object")
	}
}

func TestCompileErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Bad.mj", badProgram)

	code, stdout, _ := runMJC(src)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	want := "Line 4, Col 3: x can't be resolved to a name\n" +
		"Line 5, Col 3: y can't be resolved to a name\n" +
		"2 errors found.\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "Bad.obj")); err == nil {
		t.Error("object written despite errors")
	}
}

func TestCompileMaxErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Bad.mj", badProgram)

	code, stdout, _ := runMJC("-max-errors", "1", src)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stdout, "compilation stopped after 1 errors") || !strings.HasSuffix(stdout, "1 errors found.\n") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCompileMissingFile(t *testing.T) {
	code, _, stderr := runMJC(filepath.Join(t.TempDir(), "Nope.mj"))
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "not found") {
		t.Errorf("stderr = %q, want a not found message", stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no source", nil, 2},
		{"two sources", []string{"a.mj", "b.mj"}, 2},
		{"unknown flag", []string{"-nope", "a.mj"}, 2},
		{"negative bound", []string{"-max-errors", "-1", "a.mj"}, 2},
		{"help", []string{"-h"}, 0},
	}
	for _, tc := range tests {
		if code, _, _ := runMJC(tc.args...); code != tc.want {
			t.Errorf("%s: exit = %d, want %d", tc.name, code, tc.want)
		}
	}
}

func TestBuildProject(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "src/Hello.mj", goodProgram)
	writeSource(t, dir, "src/Bad.mj", badProgram)
	writeSource(t, dir, "mj.toml", `[project]
name = "demo"

[build]
sources = ["src/Hello.mj", "src/Bad.mj"]
output-dir = "build"
listing = true
`)

	code, stdout, stderr := runMJC("-p", dir)
	if code != 1 {
		t.Errorf("exit = %d, want 1 because Bad.mj fails", code)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want empty", stderr)
	}
	if !strings.Contains(stdout, "0 errors found.") || !strings.Contains(stdout, "2 errors found.") {
		t.Errorf("stdout = %q, want a summary per source", stdout)
	}

	if _, err := bytecode.ReadFile(filepath.Join(dir, "build", "Hello.obj")); err != nil {
		t.Errorf("Hello.obj: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "build", "Hello.lst")); err != nil {
		t.Errorf("Hello.lst: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "build", "Bad.obj")); err == nil {
		t.Error("Bad.obj written despite errors")
	}
}

func TestBuildProjectFlagsOverrideManifest(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Hello.mj", goodProgram)
	writeSource(t, dir, "mj.toml", `[build]
sources = ["Hello.mj"]
listing = true
`)

	code, stdout, stderr := runMJC("-S=false", "-g", "-p", dir)
	if code != 0 {
		t.Fatalf("exit = %d, stdout %q, stderr %q", code, stdout, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "Hello.lst")); err == nil {
		t.Error("listing written although -S=false overrides the manifest")
	}
	if _, err := os.Stat(filepath.Join(dir, "Hello.dbg")); err != nil {
		t.Errorf("Hello.dbg: %v", err)
	}
}

func TestBuildProjectWithoutManifest(t *testing.T) {
	code, _, stderr := runMJC("-p", t.TempDir())
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "no mj.toml") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCountFlag(t *testing.T) {
	var c countFlag
	for i := 0; i < 3; i++ {
		if err := c.Set("true"); err != nil {
			t.Fatal(err)
		}
	}
	if c != 3 || c.String() != "3" {
		t.Errorf("countFlag = %v, want 3", c)
	}
}

func TestExampleProjectCompiles(t *testing.T) {
	m, err := manifest.Load(filepath.Join("..", "..", "examples", "sample"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out := t.TempDir()
	cfg := projectConfig(m)
	for _, src := range m.SourcePaths() {
		c := cfg
		c.Output = filepath.Join(out, filepath.Base(manifest.ReplaceExt(src, ".obj")))

		var stdout bytes.Buffer
		errs, err := compileFile(src, c, &stdout)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if errs != 0 {
			t.Errorf("%s: %d errors:\n%s", src, errs, stdout.String())
		}
		if _, err := os.Stat(manifest.ReplaceExt(c.Output, ".dbg")); err != nil {
			t.Errorf("%s: debug sidecar missing: %v", src, err)
		}
	}
}
