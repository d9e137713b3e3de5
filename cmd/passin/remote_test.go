package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// isolateState points the remotes file at a fresh temp directory.
func isolateState(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	return filepath.Join(dir, "passin", "remotes.toml")
}

func runRemote(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func TestRemotesPath(t *testing.T) {
	want := isolateState(t)
	got, err := remotesPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("remotesPath() = %q, want %q", got, want)
	}

	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)
	got, err = remotesPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".local", "state", "passin", "remotes.toml"); got != want {
		t.Errorf("remotesPath() without XDG = %q, want %q", got, want)
	}
}

func TestRemoteFile_WriteRead(t *testing.T) {
	path := isolateState(t)

	rf := &remoteFile{Remotes: map[string]remoteProfile{}}
	if err := rf.put("venue", remoteProfile{URL: "https://tickets.example.com", GRPCAddr: "tickets.example.com:9090", NATSURL: "nats://venue:4222"}); err != nil {
		t.Fatal(err)
	}
	if err := rf.put("local", remoteProfile{URL: "http://localhost:8080"}); err != nil {
		t.Fatal(err)
	}
	if err := rf.use("venue"); err != nil {
		t.Fatal(err)
	}
	if err := rf.write(); err != nil {
		t.Fatalf("write: %v", err)
	}

	for p, want := range map[string]os.FileMode{path: 0o600, filepath.Dir(path): 0o700} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s mode = %04o, want %04o", p, got, want)
		}
	}

	back, err := readRemotes()
	if err != nil {
		t.Fatalf("readRemotes: %v", err)
	}
	if back.Active != "venue" {
		t.Errorf("Active = %q", back.Active)
	}
	if got := back.Remotes["venue"]; got != rf.Remotes["venue"] {
		t.Errorf("venue = %+v, want %+v", got, rf.Remotes["venue"])
	}
	if got := strings.Join(back.names(), ","); got != "local,venue" {
		t.Errorf("names() = %s", got)
	}
}

func TestReadRemotes_Missing(t *testing.T) {
	isolateState(t)
	rf, err := readRemotes()
	if err != nil {
		t.Fatal(err)
	}
	if rf.Active != "" || rf.Remotes == nil || len(rf.Remotes) != 0 {
		t.Errorf("readRemotes() on a fresh dir = %+v", rf)
	}
}

func TestRemoteFile_PutRejectsBadURL(t *testing.T) {
	rf := &remoteFile{Remotes: map[string]remoteProfile{}}
	for _, raw := range []string{"", "localhost:8080", "ftp://host", "http://"} {
		if err := rf.put("x", remoteProfile{URL: raw}); err == nil {
			t.Errorf("put(%q) accepted", raw)
		}
	}
	if err := rf.put("", remoteProfile{URL: "http://host"}); err == nil {
		t.Error("put with empty name accepted")
	}
}

func TestRemoteCommands(t *testing.T) {
	isolateState(t)

	if _, err := runRemote(t, remoteAddCmd, "local", "http://localhost:8080"); err != nil {
		t.Fatal(err)
	}
	// Re-adding the same name overwrites it.
	if _, err := runRemote(t, remoteAddCmd, "local", "http://127.0.0.1:8080"); err != nil {
		t.Fatal(err)
	}
	if _, err := runRemote(t, remoteUseCmd, "local"); err != nil {
		t.Fatal(err)
	}

	out, err := runRemote(t, remoteListCmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "* local") || !strings.Contains(out, "http://127.0.0.1:8080") {
		t.Errorf("list output:\n%s", out)
	}

	if _, err := runRemote(t, remoteRemoveCmd, "local"); err != nil {
		t.Fatal(err)
	}
	rf, _ := readRemotes()
	if len(rf.Remotes) != 0 || rf.Active != "" {
		t.Errorf("after remove: %+v", rf)
	}

	out, _ = runRemote(t, remoteListCmd)
	if !strings.HasPrefix(out, "no remotes configured") {
		t.Errorf("empty list output = %q", out)
	}
}

func TestRemoteCommands_UnknownName(t *testing.T) {
	for _, cmd := range []*cobra.Command{remoteUseCmd, remoteRemoveCmd} {
		t.Run(cmd.Name(), func(t *testing.T) {
			isolateState(t)
			if _, err := runRemote(t, cmd, "ghost"); err == nil || !strings.Contains(err.Error(), `"ghost" not found`) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
