package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crm-project/backend/triage"
)

// executeCommand runs rootCmd with args and stdin, returning stdout and
// stderr separately.
func executeCommand(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { tablesPath = "" })
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "crm" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "crm")
	}
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "associations"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
	if serveCmd.Flags().Lookup("memory") == nil {
		t.Error("serve has no --memory flag")
	}
}

func TestParseCommand(t *testing.T) {
	input := "جمعية البر, 0501234567, الرياض\nجمعية\n"
	stdout, stderr, err := executeCommand(t, input, "associations", "parse")
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}

	var res triage.ParseResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(res.Records) != 1 || res.Records[0].Phone != "0501234567" {
		t.Errorf("Records = %+v", res.Records)
	}
	if len(res.Rejected) != 1 || res.Rejected[0] != 2 {
		t.Errorf("Rejected = %v, want [2]", res.Rejected)
	}
	if !strings.Contains(stderr, "rejected lines") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDedupeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	csvText := "name,phone,city\n" +
		"جمعية البر,0501234567,الرياض\n" +
		"جمعية البر,0501234567,الرياض\n" +
		"جمعية النور,0551234567,جدة\n"
	if err := os.WriteFile(path, []byte(csvText), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := executeCommand(t, "", "associations", "dedupe", path)
	if err != nil {
		t.Fatalf("dedupe error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Errorf("got %d CSV lines, want header plus 2 rows:\n%s", len(lines), stdout)
	}
	if !strings.Contains(stderr, "1 duplicates removed") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDedupeMissingFile(t *testing.T) {
	if _, _, err := executeCommand(t, "", "associations", "dedupe", filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("dedupe of a missing file should fail")
	}
}
