package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwulff/subplay/internal/app"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/transcript"
)

const subs = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n"

// testEnv points every path setting into a temp dir.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SUBPLAY_DB", filepath.Join(dir, "subplay.sqlite"))
	t.Setenv("SUBPLAY_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("SUBPLAY_LOG", filepath.Join(dir, "subplay.log"))
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", filepath.Join(dir, "config.yaml")))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportListDelete(t *testing.T) {
	dir := testEnv(t)
	media := writeFile(t, dir, "clip.mp4", "not really a video")
	subsPath := writeFile(t, dir, "clip.srt", subs)

	out, err := execute(t, dir, "import", media, subsPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "clip.mp4") || !strings.Contains(out, "2 entries") {
		t.Errorf("import output = %q", out)
	}

	out, err = execute(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "clip.mp4") {
		t.Errorf("list output = %q", out)
	}

	if _, err := execute(t, dir, "delete", "clip.mp4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, err = execute(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, "clip.mp4") {
		t.Errorf("list after delete = %q", out)
	}
}

func TestImportRejectsEmptySubtitles(t *testing.T) {
	dir := testEnv(t)
	media := writeFile(t, dir, "clip.mp4", "data")
	bad := writeFile(t, dir, "bad.srt", "just some text\n")

	if _, err := execute(t, dir, "import", media, bad); err == nil {
		t.Fatal("import with unusable subtitles should fail")
	}
	out, err := execute(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, "clip.mp4") {
		t.Error("failed import should store nothing")
	}
}

func TestShareEncodeDecode(t *testing.T) {
	dir := testEnv(t)
	subsPath := writeFile(t, dir, "clip.srt", subs)

	link, err := execute(t, dir, "share", "encode", subsPath)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "https://subplay.app/") {
		t.Errorf("link = %q", link)
	}

	raw, err := execute(t, dir, "share", "decode", link)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := transcript.Parse(raw).Entries; len(got) != 2 || got[1].Text != "World" {
		t.Errorf("decoded entries = %+v", got)
	}
}

func TestShareDecodeRejectsGarbage(t *testing.T) {
	dir := testEnv(t)
	_, err := execute(t, dir, "share", "decode", "not a token!")
	if !errors.Is(err, share.ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestOptionsFromLinkSessionKey(t *testing.T) {
	link, err := share.SessionURL("https://subplay.app/", "clip.mp4")
	if err != nil {
		t.Fatalf("SessionURL: %v", err)
	}
	opts, err := optionsFromLink(link, app.Options{})
	if err != nil {
		t.Fatalf("optionsFromLink: %v", err)
	}
	if opts.InitialKey != "clip.mp4" {
		t.Errorf("InitialKey = %q", opts.InitialKey)
	}
}

func TestOptionsFromLinkToken(t *testing.T) {
	token, err := share.Encode(subs)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	opts, err := optionsFromLink(token, app.Options{})
	if err != nil {
		t.Fatalf("optionsFromLink: %v", err)
	}
	if len(opts.InitialEntries) != 2 {
		t.Errorf("entries = %d, want 2", len(opts.InitialEntries))
	}
}

func TestConfigInit(t *testing.T) {
	dir := testEnv(t)
	if _, err := execute(t, dir, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file: %v", err)
	}
	if _, err := execute(t, dir, "config", "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}
