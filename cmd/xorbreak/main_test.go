package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorbreak/internal/xorcrack"
)

const cookingHex = "1b37373331363f78151b7f2b783431333d78397828372d363c78373e783a393b3736"

// setupEnv isolates configuration and history in a temporary home.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XORBREAK_HISTORY", filepath.Join(dir, "history.db"))
	t.Setenv("XORBREAK_AUDIT_LOG", "")
	t.Setenv("XORBREAK_API_TOKEN", "")
	t.Setenv("XORBREAK_JWT_SECRET", "")
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cli{stdin: strings.NewReader(stdin), stdout: &stdout, stderr: &stderr}
	code := c.run(args)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestUsageErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"single without argument", []string{"single"}},
		{"detect without argument", []string{"detect"}},
		{"repeating with two arguments", []string{"repeating", "a", "b"}},
		{"encrypt without key", []string{"encrypt", "file"}},
		{"fixed with one argument", []string{"fixed", "00"}},
		{"unknown flag", []string{"single", "-bogus", cookingHex}},
		{"bad format", []string{"single", "-format", "xml", cookingHex}},
		{"bad encoding", []string{"single", "-encoding", "rot13", cookingHex}},
		{"history without subcommand", []string{"history"}},
		{"unknown history subcommand", []string{"history", "purge"}},
		{"config without subcommand", []string{"config"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "", tt.args...)
			if code != 2 {
				t.Fatalf("expected exit 2, got %d (stderr %q)", code, stderr)
			}
			if stderr == "" {
				t.Fatal("expected usage message on stderr")
			}
		})
	}
}

func TestSingle(t *testing.T) {
	setupEnv(t)

	code, stdout, stderr := runCLI(t, "", "single", cookingHex)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "Cooking MC's like a pound of bacon\n" {
		t.Fatalf("unexpected output %q", stdout)
	}

	code, stdout, _ = runCLI(t, "", "single", "-show-key", cookingHex)
	if code != 0 || !strings.HasPrefix(stdout, "key: 0x58\n") {
		t.Fatalf("expected key header, got %d %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, "", "single", "-format", "json", cookingHex)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if got := gjson.Get(stdout, "key").Int(); got != 'X' {
		t.Fatalf("expected key 88, got %d", got)
	}
	if gjson.Get(stdout, "id").String() == "" {
		t.Fatal("expected history id in json output")
	}
}

func TestSingleDecodeFailure(t *testing.T) {
	setupEnv(t)
	code, _, stderr := runCLI(t, "", "single", "zz")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "decode failed") {
		t.Fatalf("expected decode error, got %q", stderr)
	}
}

func TestDetect(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "lines.txt", strings.Join([]string{
		"f3b1a5c2d4e6f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7081",
		"",
		"not hex",
		"0e3647e8592d35514a081243582536ed3de6734059001e3f535ce6271032334a",
		cookingHex,
	}, "\n")+"\n")

	code, stdout, stderr := runCLI(t, "", "detect", "-format", "yaml", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var out map[string]any
	if err := yaml.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("parse yaml output: %v\n%s", err, stdout)
	}
	if out["line"] != 5 {
		t.Fatalf("expected line 5, got %v", out["line"])
	}
	if out["skipped"] != 1 {
		t.Fatalf("expected 1 skipped line, got %v", out["skipped"])
	}
	if out["plaintext"] != "Cooking MC's like a pound of bacon" {
		t.Fatalf("unexpected plaintext %v", out["plaintext"])
	}
}

func TestDetectFromStdin(t *testing.T) {
	setupEnv(t)
	code, stdout, stderr := runCLI(t, cookingHex+"\n", "detect", "-no-history", "-")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "Cooking MC's like a pound of bacon\n" {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestDetectNothingDecodes(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "bad.txt", "zz\nqq\n")
	if code, _, _ := runCLI(t, "", "detect", path); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestEncryptKnownVector(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "stanza.txt", "Burning 'em, if you ain't quick and nimble\nI go crazy when I hear a cymbal\n")

	code, stdout, stderr := runCLI(t, "", "encrypt", "-key", "ICE", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	want := "0b3637272a2b2e63622c2e69692a23693a2a3c6324202d623d63343c2a26226324272765272" +
		"a282b2f20430a652e2c652a3124333a653e2b2027630c692b20283165286326302e27282f"
	if strings.TrimSpace(stdout) != want {
		t.Fatalf("unexpected ciphertext\n got %s\nwant %s", strings.TrimSpace(stdout), want)
	}
}

func TestEncryptBase64Output(t *testing.T) {
	dir := setupEnv(t)
	stanza := "Burning 'em, if you ain't quick and nimble\nI go crazy when I hear a cymbal"
	path := writeFile(t, dir, "stanza.txt", stanza+"\n")

	code, stdout, stderr := runCLI(t, "", "encrypt", "-key", "ICE", "-output", "base64", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	want := base64.StdEncoding.EncodeToString(xorcrack.RepeatingXOR([]byte(stanza), []byte("ICE")))
	if strings.TrimSpace(stdout) != want {
		t.Fatalf("unexpected ciphertext\n got %s\nwant %s", strings.TrimSpace(stdout), want)
	}

	if code, _, _ := runCLI(t, "", "encrypt", "-key", "ICE", "-output", "raw", path); code != 2 {
		t.Fatalf("expected exit 2 for unsupported output, got %d", code)
	}
}

func TestFixed(t *testing.T) {
	setupEnv(t)
	code, stdout, _ := runCLI(t, "", "fixed", "1c0111001f010100061a024b53535009181c", "686974207468652062756c6c277320657965")
	if code != 0 || strings.TrimSpace(stdout) != "746865206b696420646f6e277420706c6179" {
		t.Fatalf("unexpected result %d %q", code, stdout)
	}
	if code, _, _ := runCLI(t, "", "fixed", "12", "3456"); code != 1 {
		t.Fatalf("expected exit 1 for length mismatch, got %d", code)
	}
}

func TestRepeatingAndKeySizes(t *testing.T) {
	dir := setupEnv(t)
	plain := strings.Repeat("Now that the party is jumping with the bass kicked in and the Vegas are pumpin. ", 8)
	encoded := base64.StdEncoding.EncodeToString(xorcrack.RepeatingXOR([]byte(plain), []byte("ICE")))
	var wrapped strings.Builder
	for len(encoded) > 60 {
		wrapped.WriteString(encoded[:60] + "\n")
		encoded = encoded[60:]
	}
	wrapped.WriteString(encoded + "\n")
	path := writeFile(t, dir, "cipher.b64", wrapped.String())

	code, stdout, stderr := runCLI(t, "", "repeating", "-min-keysize", "2", "-max-keysize", "8", "-show-key", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, `key: "ICE`) {
		t.Fatalf("expected key header, got %q", stdout)
	}
	if !strings.Contains(stdout, plain) {
		t.Fatalf("plaintext missing from output %q", stdout)
	}

	code, stdout, stderr = runCLI(t, "", "keysizes", "-min-keysize", "2", "-max-keysize", "20", "-candidates", "5", "-format", "json", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if n := len(gjson.Parse(stdout).Array()); n != 5 {
		t.Fatalf("expected 5 key sizes, got %d: %s", n, stdout)
	}

	if code, _, _ := runCLI(t, "", "repeating", "-encoding", "hex", path); code != 1 {
		t.Fatalf("expected exit 1 for undecodable input, got %d", code)
	}
}

func TestRepeatingInsufficientData(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "short.b64", base64.StdEncoding.EncodeToString([]byte("short")))
	code, _, stderr := runCLI(t, "", "repeating", path)
	if code != 1 || !strings.Contains(stderr, "insufficient") {
		t.Fatalf("expected insufficient data failure, got %d %q", code, stderr)
	}
}

func TestHistoryCommands(t *testing.T) {
	setupEnv(t)

	if code, _, stderr := runCLI(t, "", "single", "-no-history", cookingHex); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	code, stdout, _ := runCLI(t, "", "history", "list", "-format", "json")
	if code != 0 || len(gjson.Parse(stdout).Array()) != 0 {
		t.Fatalf("expected empty history after -no-history, got %d %s", code, stdout)
	}

	code, stdout, _ = runCLI(t, "", "single", "-format", "json", cookingHex)
	if code != 0 {
		t.Fatalf("single exit %d", code)
	}
	id := gjson.Get(stdout, "id").String()

	code, stdout, _ = runCLI(t, "", "history", "list", "-format", "json", "-mode", "single")
	if code != 0 {
		t.Fatalf("history list exit %d", code)
	}
	if got := gjson.Get(stdout, "0.id").String(); got != id {
		t.Fatalf("expected %s first, got %s", id, got)
	}

	code, stdout, _ = runCLI(t, "", "history", "list")
	if code != 0 || !strings.Contains(stdout, id) {
		t.Fatalf("expected id in table output, got %q", stdout)
	}

	code, stdout, _ = runCLI(t, "", "history", "show", id)
	if code != 0 || !strings.Contains(stdout, "Cooking MC's like a pound of bacon") {
		t.Fatalf("unexpected show output %d %q", code, stdout)
	}

	if code, _, _ := runCLI(t, "", "history", "show", "01HZZZZZZZZZZZZZZZZZZZZZZZ"); code != 1 {
		t.Fatalf("expected exit 1 for unknown id, got %d", code)
	}
}

func TestConfigPrintRedactsSecrets(t *testing.T) {
	setupEnv(t)
	t.Setenv("XORBREAK_JWT_SECRET", "super-secret")
	t.Setenv("XORBREAK_MAX_KEYSIZE", "24")

	code, stdout, stderr := runCLI(t, "", "config", "print", "-format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if got := gjson.Get(stdout, "max_keysize").Int(); got != 24 {
		t.Fatalf("expected env override 24, got %d", got)
	}
	if got := gjson.Get(stdout, "api.jwt_secret").String(); got != redacted {
		t.Fatalf("expected redacted secret, got %q", got)
	}
	if strings.Contains(stdout, "super-secret") {
		t.Fatal("secret leaked into output")
	}

	code, stdout, _ = runCLI(t, "", "config", "print")
	if code != 0 || !strings.Contains(stdout, "max_keysize: 24\n") {
		t.Fatalf("unexpected text output %q", stdout)
	}
}

func TestConfigLoadFailure(t *testing.T) {
	setupEnv(t)
	t.Setenv("XORBREAK_MIN_KEYSIZE", "many")
	if code, _, _ := runCLI(t, "", "single", cookingHex); code != 1 {
		t.Fatalf("expected exit 1 for bad config, got %d", code)
	}
}

func TestServeRequiresSecrets(t *testing.T) {
	setupEnv(t)
	code, _, stderr := runCLI(t, "", "serve")
	if code != 1 || !strings.Contains(stderr, "jwt_secret") {
		t.Fatalf("expected missing secret failure, got %d %q", code, stderr)
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "version")
	if code != 0 || stdout != "xorbreak dev\n" {
		t.Fatalf("unexpected version output %d %q", code, stdout)
	}
}
