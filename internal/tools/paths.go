// Package tools holds the small server-side helpers shared by the command
// line programs: per-user and per-server directories, name sanitizing and
// driver argument tokenizing.
package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variables consulted by DefaultServerName and DefaultPaths.
const (
	EnvDefaultServer     = "RTAUDIO_DEFAULT_SERVER"
	EnvPromiscuousServer = "RTAUDIO_PROMISCUOUS_SERVER"
)

const (
	// DefaultServerNameValue is the server name used when none is configured.
	DefaultServerNameValue = "default"

	// DefaultTmpDir is the base directory for server files.
	DefaultTmpDir = "/tmp"

	userDirPrefix = "rtaudio"
	dirPerm       = 0o700
)

// ErrInvalidPaths is returned by Paths.Validate.
var ErrInvalidPaths = errors.New("invalid paths")

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Paths locates the directories a server keeps its files in. The zero value
// is not usable; use DefaultPaths or fill in TmpDir.
type Paths struct {
	TmpDir string

	// UID separates the directories of different users.
	UID int

	// Promiscuous shares a single user directory among all users.
	Promiscuous bool
}

// DefaultPaths returns the paths for the current user. A nil lookup reads
// the process environment.
func DefaultPaths(lookup LookupFunc) Paths {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	_, promiscuous := lookup(EnvPromiscuousServer)
	return Paths{
		TmpDir:      DefaultTmpDir,
		UID:         os.Getuid(),
		Promiscuous: promiscuous,
	}
}

// Validate checks the paths.
func (p Paths) Validate() error {
	if p.TmpDir == "" {
		return fmt.Errorf("%w: empty tmp dir", ErrInvalidPaths)
	}
	if !p.Promiscuous && p.UID < 0 {
		return fmt.Errorf("%w: uid %d", ErrInvalidPaths, p.UID)
	}
	return nil
}

// UserDir returns the per-user subdirectory of TmpDir.
func (p Paths) UserDir() string {
	if p.Promiscuous {
		return filepath.Join(p.TmpDir, userDirPrefix)
	}
	return filepath.Join(p.TmpDir, userDirPrefix+"-"+strconv.Itoa(p.UID))
}

// ServerDir returns the per-server subdirectory of UserDir.
func (p Paths) ServerDir(server string) string {
	return filepath.Join(p.UserDir(), RewriteName(server))
}

// MakeServerDir creates the server directory and returns its path.
func (p Paths) MakeServerDir(server string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	dir := p.ServerDir(server)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create server dir: %w", err)
	}
	return dir, nil
}

// CleanupFiles removes every file in the server directory, the directory
// itself and the user directory if it is left empty. A missing server
// directory is not an error. All removal failures are reported.
func (p Paths) CleanupFiles(server string) error {
	dir := p.ServerDir(server)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read server dir: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(dir); err != nil {
		errs = append(errs, err)
	}

	// Other servers may still own the user directory.
	userDir := p.UserDir()
	if rest, err := os.ReadDir(userDir); err == nil && len(rest) == 0 {
		if err := os.Remove(userDir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultServerName returns the server name from the environment, or
// "default". A nil lookup reads the process environment.
func DefaultServerName(lookup LookupFunc) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if name, ok := lookup(EnvDefaultServer); ok && name != "" {
		return name
	}
	return DefaultServerNameValue
}

// RewriteName replaces path separators so name can be used as a single path
// element.
func RewriteName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
