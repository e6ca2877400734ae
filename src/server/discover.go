package server

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	installDirName  = "libretranslate"
	packagesDirName = "argos-packages"
	manifestName    = "installed-languages.txt"
	exeWalkDepth    = 5
	cwdWalkDepth    = 3
)

var ErrExecutableNotFound = errors.New("libretranslate not found")

// Locator finds the LibreTranslate executable and the assets next to it.
// The zero value searches nothing but PATH; use DefaultLocator.
type Locator struct {
	// PythonPath is the explicit interpreter from configuration.
	PythonPath string
	// ExeDir is the directory holding the running binary.
	ExeDir string
	// WorkDir is the current working directory.
	WorkDir string
	// HomeDir holds the per-user argos-translate package store.
	HomeDir string
	GOOS    string

	LookPath func(string) (string, error)
}

func DefaultLocator(pythonPath string) Locator {
	l := Locator{PythonPath: pythonPath, GOOS: runtime.GOOS, LookPath: exec.LookPath}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		l.ExeDir = filepath.Dir(exe)
	}
	l.WorkDir, _ = os.Getwd()
	l.HomeDir, _ = os.UserHomeDir()
	return l
}

func (l Locator) scriptDir() string {
	if l.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}

func (l Locator) launcherName() string {
	if l.GOOS == "windows" {
		return "libretranslate.exe"
	}
	return "libretranslate"
}

// Find returns the first usable executable: the configured interpreter,
// the installer layout next to the binary, a venv found walking up from the
// binary or the working directory, then PATH.
func (l Locator) Find() (string, error) {
	if l.PythonPath != "" {
		if exists(l.PythonPath) {
			return l.PythonPath, nil
		}
	}

	if l.ExeDir != "" {
		switch l.GOOS {
		case "windows":
			embedded := filepath.Join(l.ExeDir, installDirName, "python.exe")
			module := filepath.Join(l.ExeDir, installDirName, "Lib", "site-packages", "libretranslate")
			if exists(embedded) && exists(module) {
				return embedded, nil
			}
			venv := filepath.Join(l.ExeDir, installDirName, "Scripts", "python.exe")
			if exists(venv) {
				return venv, nil
			}
		case "darwin":
			bundle := filepath.Join(filepath.Dir(l.ExeDir), "Resources", installDirName, "bin", "python3")
			if exists(bundle) {
				return bundle, nil
			}
		}

		dir := l.ExeDir
		for i := 0; i < exeWalkDepth; i++ {
			candidate := filepath.Join(dir, installDirName, l.scriptDir(), l.launcherName())
			if exists(candidate) {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if l.WorkDir != "" {
		dir := l.WorkDir
		for i := 0; i < cwdWalkDepth; i++ {
			candidate := filepath.Join(dir, installDirName, l.scriptDir(), l.launcherName())
			if exists(candidate) {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if l.LookPath != nil {
		if p, err := l.LookPath("libretranslate"); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w; %s", ErrExecutableNotFound, l.installHint())
}

func (l Locator) installHint() string {
	if l.GOOS == "windows" {
		return "install it with: py -3.12 -m venv ../libretranslate && ../libretranslate/Scripts/pip install libretranslate"
	}
	return "install it with: python3 -m venv ../libretranslate && ../libretranslate/bin/pip install libretranslate"
}

// IsPython reports whether exe is an interpreter rather than the
// libretranslate launcher script.
func IsPython(exe string) bool {
	switch strings.ToLower(filepath.Base(exe)) {
	case "python.exe", "python", "python3", "python3.exe":
		return true
	}
	return false
}

// entryScript finds libretranslate/main.py inside the interpreter's
// environment. Embedded and Windows venv layouts use Lib/site-packages,
// unix venvs use lib/python3.*/site-packages.
func entryScript(exe string) string {
	parent := filepath.Dir(exe)
	root := filepath.Dir(parent)
	candidates := []string{
		filepath.Join(parent, "Lib", "site-packages", "libretranslate", "main.py"),
		filepath.Join(root, "Lib", "site-packages", "libretranslate", "main.py"),
	}
	if matches, err := filepath.Glob(filepath.Join(root, "lib", "python3*", "site-packages", "libretranslate", "main.py")); err == nil {
		candidates = append(candidates, matches...)
	}
	for _, c := range candidates {
		if exists(c) {
			return c
		}
	}
	return ""
}

// BundledPackages returns the argos package directory shipped next to the
// environment, if it has any entries.
func (l Locator) BundledPackages(exe string) string {
	parent := filepath.Dir(exe)
	candidates := []string{
		filepath.Join(parent, packagesDirName),
		filepath.Join(filepath.Dir(parent), packagesDirName),
	}
	if l.ExeDir != "" {
		candidates = append(candidates, filepath.Join(l.ExeDir, installDirName, packagesDirName))
	}
	for _, c := range candidates {
		if hasEntries(c) {
			return c
		}
	}
	return ""
}

// HasLanguagePackages reports whether models are already installed, either
// bundled or in the per-user argos-translate store.
func (l Locator) HasLanguagePackages(exe string) bool {
	if l.BundledPackages(exe) != "" {
		return true
	}
	if l.HomeDir == "" {
		return false
	}
	return hasEntries(filepath.Join(l.HomeDir, ".local", "share", "argos-translate", "packages"))
}

// InstalledLanguages reads the installer manifest, e.g. "en,zh,ja".
func (l Locator) InstalledLanguages(exe string) string {
	parent := filepath.Dir(exe)
	candidates := []string{
		filepath.Join(parent, manifestName),
		filepath.Join(filepath.Dir(parent), manifestName),
	}
	if l.ExeDir != "" {
		candidates = append(candidates, filepath.Join(l.ExeDir, installDirName, manifestName))
	}
	for _, c := range candidates {
		b, err := os.ReadFile(c)
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			return s
		}
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hasEntries(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	return err == nil && len(names) > 0
}
