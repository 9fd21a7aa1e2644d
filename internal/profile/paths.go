package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.groupweaver, or $GROUPWEAVER_HOME when set.
func BaseDir() string {
	if v := os.Getenv("GROUPWEAVER_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".groupweaver")
}

// ConfigPath returns the global config file path under base.
func ConfigPath(base string) string {
	return filepath.Join(base, "config.toml")
}

// Paths locates the files that belong to one profile.
type Paths struct {
	Base string
	Name string
}

// New returns the paths of profile name under base. An empty base means BaseDir().
func New(base, name string) Paths {
	if base == "" {
		base = BaseDir()
	}
	return Paths{Base: base, Name: name}
}

// Dir returns the profile-specific directory.
func (p Paths) Dir() string {
	return filepath.Join(p.Base, "profiles", p.Name)
}

// DataDir holds the storage document.
func (p Paths) DataDir() string {
	return filepath.Join(p.Dir(), "data")
}

// StoragePath returns the JSON storage document path.
func (p Paths) StoragePath() string {
	return filepath.Join(p.DataDir(), "storage.json")
}

// SocketPath returns the control socket path.
func (p Paths) SocketPath() string {
	return filepath.Join(p.Dir(), "gwd.sock")
}

// LockPath returns the lock file path.
func (p Paths) LockPath() string {
	return filepath.Join(p.Dir(), "LOCK")
}

// LogDir returns the log directory.
func (p Paths) LogDir() string {
	return filepath.Join(p.Dir(), "logs")
}

// LogPath returns the daemon log file path.
func (p Paths) LogPath() string {
	return filepath.Join(p.LogDir(), "gwd.log")
}

// EnsureDirs creates the profile directory tree with proper permissions.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Dir(), p.DataDir(), p.LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
