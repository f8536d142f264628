package cli

import (
	"os"
	"path/filepath"
)

// Paths lays out the per-app directories under ~/.voxbridge.
type Paths struct {
	AppName string
	HomeDir string
}

// NewPaths creates a new Paths instance for the given app
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{
		AppName: appName,
		HomeDir: home,
	}, nil
}

// BaseDir returns ~/.voxbridge
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// AppDir returns ~/.voxbridge/<app>
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir(), p.AppName)
}

// ConfigFile returns ~/.voxbridge/<app>/config.yaml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// ArchiveDir returns the default session archive database directory for a
// context: ~/.voxbridge/<app>/archive/<context>.
func (p *Paths) ArchiveDir(context string) string {
	if context == "" {
		context = "default"
	}
	return filepath.Join(p.AppDir(), "archive", context)
}

// RecordingsDir returns ~/.voxbridge/<app>/recordings, the default storage
// location for exports and recorded agent audio.
func (p *Paths) RecordingsDir() string {
	return filepath.Join(p.AppDir(), "recordings")
}

// ArchiveDirFor resolves the archive directory for ctx, honoring its
// override.
func (p *Paths) ArchiveDirFor(ctx *Context) string {
	if ctx.ArchiveDir != "" {
		return ctx.ArchiveDir
	}
	return p.ArchiveDir(ctx.Name)
}

// StorageFor resolves the storage location for ctx, honoring its override.
func (p *Paths) StorageFor(ctx *Context) string {
	if ctx.StorageURI != "" {
		return ctx.StorageURI
	}
	return p.RecordingsDir()
}
