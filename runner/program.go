package runner

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/mod/modfile"

	"github.com/noob000007/remote-conda-decorator/shm"
	"github.com/noob000007/remote-conda-decorator/types"
)

// ModulePath is the import path of this module, required by every
// generated runner program.
const ModulePath = "github.com/noob000007/remote-conda-decorator"

// Program produces the argv that runs the runner program on one input
// artifact. The launcher prefix is not part of it.
type Program interface {
	// Command returns the argv and a cleanup releasing anything created
	// for it. cleanup is never nil when err is nil.
	Command(ctx context.Context, store *shm.Store, inputPath string) (argv []string, cleanup func(), err error)
}

// SelfProgram re-executes a binary that calls Init at the top of main.
type SelfProgram struct {
	// Executable defaults to os.Executable().
	Executable string
}

// Command implements Program.
func (p SelfProgram) Command(_ context.Context, _ *shm.Store, inputPath string) ([]string, func(), error) {
	exe := p.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return nil, nil, fmt.Errorf("locate executable: %w", err)
		}
	}
	return []string{exe, ModeArg, inputPath}, func() {}, nil
}

// Module is a go.mod requirement of a generated runner program.
type Module struct {
	// Path is the module path.
	Path string `yaml:"path"`
	// Version defaults to a zero pseudo-version, which only makes sense
	// together with Dir.
	Version string `yaml:"version"`
	// Dir replaces the module with a local directory.
	Dir string `yaml:"dir"`
}

// GeneratedProgram writes a main package blank-importing the packages that
// register entry points, and runs it with the Go toolchain of the target
// environment.
type GeneratedProgram struct {
	// GoBinary defaults to "go", resolved inside the target environment.
	GoBinary string
	// Imports are the packages registering entry points.
	Imports []string
	// Modules are the requirements; this module must be among them.
	Modules []Module
	// GoVersion is the go directive, default "1.25".
	GoVersion string
}

const zeroPseudoVersion = "v0.0.0-00010101000000-000000000000"

//go:embed main.go.tmpl
var mainTemplateSource string

var mainTemplate = template.Must(template.New("main.go").Parse(mainTemplateSource))

// TemplateChecksum returns the SHA256 checksum of the embedded main.go
// template, reported by the version command.
func TemplateChecksum() string {
	hash := sha256.Sum256([]byte(mainTemplateSource))
	return hex.EncodeToString(hash[:])
}

// Command implements Program. The program directory lives in the store
// under a runner_ key and is removed by cleanup.
func (p GeneratedProgram) Command(ctx context.Context, store *shm.Store, inputPath string) ([]string, func(), error) {
	if !store.OnDisk() {
		return nil, nil, errors.New("generated runner programs need a filesystem store")
	}

	dirKey := shm.NewKey(shm.RunnerPrefix, "")
	dir := store.Path(dirKey)
	cleanup := func() { _ = store.RemoveTree(context.Background(), dirKey) }

	mainGo, err := p.RenderMain()
	if err != nil {
		return nil, nil, err
	}
	goMod, err := p.RenderGoMod(dir, "condacall.local/"+dirKey)
	if err != nil {
		return nil, nil, fmt.Errorf("render go.mod: %w", err)
	}
	if err := store.Put(ctx, dirKey+"/main.go", mainGo); err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := store.Put(ctx, dirKey+"/go.mod", goMod); err != nil {
		cleanup()
		return nil, nil, err
	}

	goBin := p.GoBinary
	if goBin == "" {
		goBin = "go"
	}
	return []string{goBin, "-C", dir, "run", "-mod=mod", ".", inputPath}, cleanup, nil
}

// RenderMain renders main.go.
func (p GeneratedProgram) RenderMain() ([]byte, error) {
	var buf bytes.Buffer
	err := mainTemplate.Execute(&buf, struct {
		Imports []string
		Version string
	}{Imports: p.Imports, Version: types.Version})
	if err != nil {
		return nil, fmt.Errorf("render main.go: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderGoMod renders go.mod for a program living in dir.
func (p GeneratedProgram) RenderGoMod(dir, modulePath string) ([]byte, error) {
	var goMod modfile.File
	if err := goMod.AddModuleStmt(modulePath); err != nil {
		return nil, err
	}
	goVersion := p.GoVersion
	if goVersion == "" {
		goVersion = "1.25"
	}
	if err := goMod.AddGoStmt(goVersion); err != nil {
		return nil, err
	}

	hasSelf := false
	for _, mod := range p.Modules {
		if mod.Path == ModulePath {
			hasSelf = true
		}
		vers := mod.Version
		if vers == "" {
			vers = zeroPseudoVersion
		}
		if err := goMod.AddRequire(mod.Path, vers); err != nil {
			return nil, fmt.Errorf("failed adding require for module %v: %w", mod.Path, err)
		}
		if mod.Dir == "" {
			continue
		}
		rel, err := filepath.Rel(dir, mod.Dir)
		if err != nil {
			return nil, fmt.Errorf("unable to relativize path from %v to %v: %w", dir, mod.Dir, err)
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, ".") {
			rel = "./" + rel
		}
		if err := goMod.AddReplace(mod.Path, "", rel, ""); err != nil {
			return nil, fmt.Errorf("failed replacing module %v: %w", mod.Path, err)
		}
	}
	if !hasSelf {
		if err := goMod.AddRequire(ModulePath, "v"+types.Version); err != nil {
			return nil, err
		}
	}
	return goMod.Format()
}
