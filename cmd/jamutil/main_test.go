package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stlalpha/msgbase/internal/jam"
	"github.com/stlalpha/msgbase/internal/pcboard"
)

// run executes jamutil with args against the config at cfg and returns the
// combined output.
func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	if err != nil {
		t.Fatalf("jamutil %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func noConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.yaml")
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, noConfig(t), "version")
	if !strings.Contains(out, "jamutil "+jam.Version) || !strings.Contains(out, "commit: none") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out := mustRun(t, noConfig(t), "--help")
	for _, sub := range []string{"create", "info", "list", "read", "post", "search", "lastread", "check", "link", "watch", "schedule", "pcb"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help does not list %q", sub)
		}
	}
}

func TestBaseWorkflow(t *testing.T) {
	cfg := noConfig(t)
	base := filepath.Join(t.TempDir(), "general")

	out := mustRun(t, cfg, "create", base)
	if !strings.Contains(out, "Created "+base) || !strings.Contains(out, "password no") {
		t.Errorf("create output: %s", out)
	}

	out = mustRun(t, cfg, "post", base, "--from", "Alice", "--to", "Bob", "--subject", "Hi Bob", "--text", "line one\nline two\n")
	if !strings.Contains(out, "Posted message 1") {
		t.Errorf("post output: %s", out)
	}
	mustRun(t, cfg, "post", base, "--from", "Bob", "--to", "Carol", "--subject", "Hi Carol", "--text", "hello")
	mustRun(t, cfg, "post", base, "--from", "Carol", "--to", "bob", "--subject", "Again", "--text", "hey")

	out = mustRun(t, cfg, "list", base)
	for _, want := range []string{"Hi Bob", "Hi Carol", "Again"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, cfg, "read", base, "1")
	for _, want := range []string{"From:    Alice", "To:      Bob", "Subject: Hi Bob", "line one\r\nline two"} {
		if !strings.Contains(out, want) {
			t.Errorf("read missing %q:\n%q", want, out)
		}
	}

	out = mustRun(t, cfg, "read", base, "1", "--raw")
	if out != "line one\rline two\r" {
		t.Errorf("raw text = %q", out)
	}

	out = mustRun(t, cfg, "search", base, "BOB")
	if !strings.Contains(out, "2 match(es)") || !strings.Contains(out, "Hi Bob") || !strings.Contains(out, "Again") {
		t.Errorf("search output:\n%s", out)
	}

	out = mustRun(t, cfg, "lastread", base, "--user", "Bob", "--user-id", "7", "--set", "1")
	if !strings.Contains(out, "LastRead=1 HighRead=1") || !strings.Contains(out, "Bob: 2 unread") {
		t.Errorf("lastread --set output:\n%s", out)
	}
	mustRun(t, cfg, "read", base, "3", "--user", "Bob", "--user-id", "7")
	out = mustRun(t, cfg, "lastread", base)
	if !strings.Contains(out, "LastRead=3") || !strings.Contains(out, "HighRead=3") {
		t.Errorf("lastread list output:\n%s", out)
	}
	out = mustRun(t, cfg, "lastread", base, "--user", "Bob", "--user-id", "7", "--reset")
	if !strings.Contains(out, "reset lastread") {
		t.Errorf("reset output: %s", out)
	}

	mustRun(t, cfg, "kill", base, "2")
	out = mustRun(t, cfg, "list", base)
	if strings.Contains(out, "Hi Carol") {
		t.Errorf("deleted message listed:\n%s", out)
	}
	out = mustRun(t, cfg, "list", base, "--deleted")
	if !strings.Contains(out, "Hi Carol") {
		t.Errorf("--deleted did not list deleted message:\n%s", out)
	}

	out = mustRun(t, cfg, "info", "-q", base)
	if !strings.Contains(out, "active=3 indexed=3 deleted=1") {
		t.Errorf("info output: %s", out)
	}

	out = mustRun(t, cfg, "check", base)
	if !strings.Contains(out, "OK: 3 active, 1 deleted") {
		t.Errorf("check output: %s", out)
	}

	out = mustRun(t, cfg, "delete", base, "--force")
	if !strings.Contains(out, "Deleted") {
		t.Errorf("delete output: %s", out)
	}
	if _, err := os.Stat(base + jam.ExtHeader); !os.IsNotExist(err) {
		t.Errorf(".jhr still present: %v", err)
	}
}

func TestPostEchomailAndLink(t *testing.T) {
	cfg := noConfig(t)
	base := filepath.Join(t.TempDir(), "fidonet")
	mustRun(t, cfg, "create", base)

	mustRun(t, cfg, "post", base, "--type", "echomail", "--from", "Sysop", "--subject", "Topic",
		"--orig", "1:103/705", "--msgid", "1:103/705 00000001", "--area", "FIDO_TEST",
		"--origin", "Test BBS", "--text", "first")
	mustRun(t, cfg, "post", base, "--type", "echomail", "--from", "User", "--subject", "Re: Topic",
		"--orig", "1:103/705", "--reply", "1:103/705 00000001", "--text", "second")

	out := mustRun(t, cfg, "read", base, "1", "--kludges")
	for _, want := range []string{"--- msgbase", " * Origin: Test BBS (1:103/705)", "AREA:FIDO_TEST", "MsgID:"} {
		if !strings.Contains(out, want) {
			t.Errorf("read missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, cfg, "link", base)
	if !strings.Contains(out, "2 messages scanned, 2 links updated") {
		t.Errorf("link output: %s", out)
	}
	out = mustRun(t, cfg, "read", base, "2")
	if !strings.Contains(out, "reply-to 1") {
		t.Errorf("reply chain not shown:\n%s", out)
	}
}

func TestPostPasswordProtected(t *testing.T) {
	cfg := noConfig(t)
	base := filepath.Join(t.TempDir(), "private")
	mustRun(t, cfg, "create", base, "--password", "Secret")

	if _, err := run(t, cfg, "post", base, "--from", "A", "--subject", "x", "--text", "t"); err == nil {
		t.Error("post without password should fail")
	}
	mustRun(t, cfg, "post", base, "--from", "A", "--subject", "x", "--text", "t", "--password", "SECRET")
}

func TestCheckReportsIssues(t *testing.T) {
	cfg := noConfig(t)
	base := filepath.Join(t.TempDir(), "torn")
	mustRun(t, cfg, "create", base)
	mustRun(t, cfg, "post", base, "--from", "A", "--subject", "x", "--text", "t")
	if err := os.WriteFile(base+jam.ExtIndex, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, cfg, "check", base)
	if err == nil {
		t.Fatalf("check should fail:\n%s", out)
	}
	if !strings.Contains(out, "ISSUE:") {
		t.Errorf("no issues printed:\n%s", out)
	}
}

func TestConfigAreasAndSchedule(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "msgbase.yaml")
	body := "areas:\n" +
		"  - tag: general\n    name: General\n    base_path: " + filepath.Join(dir, "general") + "\n" +
		"  - tag: local\n    base_path: " + filepath.Join(dir, "local") + "\n" +
		"maintenance:\n  history_path: " + filepath.Join(dir, "history.json") + "\n"
	if err := os.WriteFile(cfg, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	mustRun(t, cfg, "create", "general")
	mustRun(t, cfg, "create", "local")
	mustRun(t, cfg, "post", "general", "--from", "A", "--subject", "x", "--text", "t")

	out := mustRun(t, cfg, "info", "--all")
	if !strings.Contains(out, "=== general (General) ===") || !strings.Contains(out, "=== local ===") {
		t.Errorf("info --all output:\n%s", out)
	}

	out = mustRun(t, cfg, "schedule", "--once")
	if !strings.Contains(out, "general: ok") || !strings.Contains(out, "local: ok") {
		t.Errorf("schedule output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "history.json")); err != nil {
		t.Errorf("history not written: %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(cfg, []byte("areas:\n  - tag: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "info", "somewhere"); err == nil {
		t.Error("expected config error")
	}
}

func TestPCBInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MAIN")
	hdr := make([]byte, 0, pcboard.BaseHeaderSize)
	for _, v := range []uint32{12, 3, 10, 42} {
		hdr = binary.LittleEndian.AppendUint32(hdr, pcboard.Uint32ToMBF(v))
	}
	hdr = append(hdr, "LOCKED"...)
	if err := os.WriteFile(path, hdr, 0644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, noConfig(t), "pcb", "info", path)
	for _, want := range []string{"10 active, numbers 3..12", "Callers:  42", "Lock:     LOCKED"} {
		if !strings.Contains(out, want) {
			t.Errorf("pcb info missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, noConfig(t), "pcb", "read", path, "1"); err == nil {
		t.Error("expected range error for message 1")
	}
}

func TestPostAddresses(t *testing.T) {
	cfg := noConfig(t)
	base := filepath.Join(t.TempDir(), "net")
	mustRun(t, cfg, "create", base)

	if _, err := run(t, cfg, "post", base, "--from", "A", "--subject", "x", "--text", "t", "--orig", "not-an-address"); err == nil {
		t.Error("post with a malformed --orig should fail")
	}
	if _, err := run(t, cfg, "post", base, "--type", "netmail", "--from", "A", "--subject", "x", "--text", "t"); err == nil {
		t.Error("netmail without --dest should fail")
	}

	mustRun(t, cfg, "post", base, "--type", "netmail", "--from", "Sysop", "--to", "Remote", "--subject", "Hello",
		"--orig", "1:103/705.0", "--dest", "2:5020/1042.1", "--private", "--text", "direct")
	mustRun(t, cfg, "post", base, "--type", "echomail", "--from", "User", "--subject", "Public",
		"--orig", "1:103/705", "--area", "FIDO_TEST", "--text", "echo")
	mustRun(t, cfg, "post", base, "--from", "Guest", "--subject", "Relayed",
		"--text", "hi\n * Origin: Other BBS (21:3/110)\n")

	out := mustRun(t, cfg, "read", base, "1")
	for _, want := range []string{"From:    Sysop (1:103/705)\n", "To:      Remote (2:5020/1042.1)\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("read 1 missing %q:\n%s", want, out)
		}
	}
	if out := mustRun(t, cfg, "read", base, "2"); !strings.Contains(out, "Area:    FIDO_TEST\n") {
		t.Errorf("read 2 missing area:\n%s", out)
	}
	if out := mustRun(t, cfg, "read", base, "3"); !strings.Contains(out, "From:    Guest (21:3/110)\n") {
		t.Errorf("read 3 missing origin line address:\n%s", out)
	}

	out = mustRun(t, cfg, "list", base, "--private")
	if !strings.Contains(out, "Hello") || strings.Contains(out, "Public") || strings.Contains(out, "Relayed") {
		t.Errorf("list --private:\n%s", out)
	}
}
