package main

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
)

// remoteProfile is one named server the CLI can talk to.
type remoteProfile struct {
	URL      string `toml:"url"`
	GRPCAddr string `toml:"grpc_addr,omitempty"`
	NATSURL  string `toml:"nats_url,omitempty"`
}

// remoteFile is the on-disk remotes.toml.
type remoteFile struct {
	Active  string                   `toml:"active"`
	Remotes map[string]remoteProfile `toml:"remotes"`
}

// remotesPath honours XDG_STATE_HOME and falls back to ~/.local/state.
func remotesPath() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "passin", "remotes.toml"), nil
}

// readRemotes loads remotes.toml. A missing file is an empty config.
func readRemotes() (*remoteFile, error) {
	path, err := remotesPath()
	if err != nil {
		return nil, err
	}
	rf := &remoteFile{}
	if _, err := toml.DecodeFile(path, rf); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if rf.Remotes == nil {
		rf.Remotes = make(map[string]remoteProfile)
	}
	return rf, nil
}

// write replaces remotes.toml atomically. The file is private to the user.
func (rf *remoteFile) write() error {
	path, err := remotesPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".remotes-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := toml.NewEncoder(tmp).Encode(rf); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding remotes: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (rf *remoteFile) lookup(name string) (remoteProfile, error) {
	p, ok := rf.Remotes[name]
	if !ok {
		return remoteProfile{}, fmt.Errorf("remote %q not found", name)
	}
	return p, nil
}

func (rf *remoteFile) put(name string, p remoteProfile) error {
	if name == "" {
		return errors.New("remote name is required")
	}
	u, err := url.Parse(p.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote URL %q must be an absolute http(s) URL", p.URL)
	}
	rf.Remotes[name] = p
	return nil
}

func (rf *remoteFile) use(name string) error {
	if _, err := rf.lookup(name); err != nil {
		return err
	}
	rf.Active = name
	return nil
}

func (rf *remoteFile) remove(name string) error {
	if _, err := rf.lookup(name); err != nil {
		return err
	}
	delete(rf.Remotes, name)
	if rf.Active == name {
		rf.Active = ""
	}
	return nil
}

func (rf *remoteFile) names() []string {
	return slices.Sorted(maps.Keys(rf.Remotes))
}

var activeRemote = sync.OnceValue(func() remoteProfile {
	rf, err := readRemotes()
	if err != nil || rf.Active == "" {
		return remoteProfile{}
	}
	return rf.Remotes[rf.Active]
})
