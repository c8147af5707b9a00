package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// ParityArtifact represents the CLI parity artifact structure.
type ParityArtifact struct {
	Version     string                   `json:"version"`
	Description string                   `json:"description"`
	Commands    map[string]ParityCommand `json:"commands"`
}

// ParityCommand represents a command in the parity artifact.
type ParityCommand struct {
	Description string                      `json:"description"`
	Flags       map[string]ParityFlag       `json:"flags,omitempty"`
	Subcommands map[string]ParitySubcommand `json:"subcommands,omitempty"`
}

// ParitySubcommand represents a subcommand in the parity artifact.
type ParitySubcommand struct {
	Flags map[string]ParityFlag `json:"flags"`
}

// ParityFlag represents a flag in the parity artifact.
type ParityFlag struct {
	Type          string   `json:"type"`
	Aliases       []string `json:"aliases,omitempty"`
	Required      bool     `json:"required"`
	Default       any      `json:"default,omitempty"`
	Description   string   `json:"description"`
	Validation    string   `json:"validation,omitempty"`
	ExclusiveWith []string `json:"exclusiveWith,omitempty"`
	DependsOn     []string `json:"dependsOn,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// loadParityArtifact loads the CLI parity artifact from docs/CLI_PARITY.json.
func loadParityArtifact(t *testing.T) *ParityArtifact {
	t.Helper()

	// Find the repo root by looking for docs/CLI_PARITY.json
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("could not determine test file location")
	}

	// Walk up from cli/cmd to find the repo root
	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "docs", "CLI_PARITY.json")
		if _, err := os.Stat(candidate); err == nil {
			data, err := os.ReadFile(candidate)
			if err != nil {
				t.Fatalf("failed to read parity artifact: %v", err)
			}

			var artifact ParityArtifact
			if err := json.Unmarshal(data, &artifact); err != nil {
				t.Fatalf("failed to parse parity artifact: %v", err)
			}
			return &artifact
		}
		dir = filepath.Dir(dir)
	}

	t.Fatal("could not find docs/CLI_PARITY.json - run from repo root")
	return nil
}

// extractFlags extracts flag names from a cli.Command.
func extractFlags(cmd *cli.Command) map[string]cli.Flag {
	flags := make(map[string]cli.Flag)
	for _, f := range cmd.Flags {
		names := f.Names()
		if len(names) > 0 {
			// Use the first (primary) name
			flags[names[0]] = f
		}
	}
	return flags
}

// checkFlagParity validates both directions: every artifact flag exists in
// the CLI and every CLI flag is documented in the artifact.
func checkFlagParity(t *testing.T, label string, actual map[string]cli.Flag, parity map[string]ParityFlag) {
	t.Helper()

	for flagName := range parity {
		if _, exists := actual[flagName]; !exists {
			t.Errorf("parity artifact declares flag --%s for %q but it does not exist in CLI", flagName, label)
		}
	}

	for flagName := range actual {
		if _, exists := parity[flagName]; !exists {
			t.Errorf("CLI %q has flag --%s but it is not in parity artifact", label, flagName)
		}
	}
}

// TestCLIParityRunCommand validates the run command flags against the parity artifact.
func TestCLIParityRunCommand(t *testing.T) {
	artifact := loadParityArtifact(t)
	runCmd := RunCommand()
	actualFlags := extractFlags(runCmd)

	parityRun, ok := artifact.Commands["run"]
	if !ok {
		t.Fatal("parity artifact missing 'run' command")
	}

	// Check all parity flags exist in actual CLI
	for flagName, parityFlag := range parityRun.Flags {
		actualFlag, exists := actualFlags[flagName]
		if !exists {
			t.Errorf("parity artifact declares flag --%s but it does not exist in CLI", flagName)
			continue
		}

		// Validate flag type matches
		actualType := getFlagType(actualFlag)
		if actualType != parityFlag.Type {
			t.Errorf("flag --%s: parity says type %q but actual is %q", flagName, parityFlag.Type, actualType)
		}

		// Validate required status
		actualRequired := isFlagRequired(actualFlag)
		if actualRequired != parityFlag.Required {
			t.Errorf("flag --%s: parity says required=%v but actual is %v", flagName, parityFlag.Required, actualRequired)
		}
	}

	// Check all actual flags exist in parity artifact
	for flagName := range actualFlags {
		if _, exists := parityRun.Flags[flagName]; !exists {
			t.Errorf("CLI has flag --%s but it is not in parity artifact", flagName)
		}
	}
}

// TestCLIParityListCommand validates the list command flags against the parity artifact.
func TestCLIParityListCommand(t *testing.T) {
	artifact := loadParityArtifact(t)
	listCmd := ListCommand()

	parityList, ok := artifact.Commands["list"]
	if !ok {
		t.Fatal("parity artifact missing 'list' command")
	}

	for _, subCmd := range listCmd.Subcommands {
		paritySubCmd, ok := parityList.Subcommands[subCmd.Name]
		if !ok {
			t.Errorf("CLI has list subcommand %q but it is not in parity artifact", subCmd.Name)
			continue
		}
		checkFlagParity(t, "list "+subCmd.Name, extractFlags(subCmd), paritySubCmd.Flags)
	}

	for subName := range parityList.Subcommands {
		found := false
		for _, subCmd := range listCmd.Subcommands {
			if subCmd.Name == subName {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("parity artifact declares list subcommand %q but it does not exist in CLI", subName)
		}
	}
}

// TestCLIParityInspectCommand validates the inspect command flags against the parity artifact.
func TestCLIParityInspectCommand(t *testing.T) {
	artifact := loadParityArtifact(t)
	inspectCmd := InspectCommand()

	parityInspect, ok := artifact.Commands["inspect"]
	if !ok {
		t.Fatal("parity artifact missing 'inspect' command")
	}

	for _, subCmd := range inspectCmd.Subcommands {
		paritySubCmd, ok := parityInspect.Subcommands[subCmd.Name]
		if !ok {
			t.Errorf("CLI has inspect subcommand %q but it is not in parity artifact", subCmd.Name)
			continue
		}
		checkFlagParity(t, "inspect "+subCmd.Name, extractFlags(subCmd), paritySubCmd.Flags)
	}

	for subName := range parityInspect.Subcommands {
		found := false
		for _, subCmd := range inspectCmd.Subcommands {
			if subCmd.Name == subName {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("parity artifact declares inspect subcommand %q but it does not exist in CLI", subName)
		}
	}
}

// TestCLIParityStatsCommand validates the stats command flags against the parity artifact.
func TestCLIParityStatsCommand(t *testing.T) {
	artifact := loadParityArtifact(t)
	statsCmd := StatsCommand()

	parityStats, ok := artifact.Commands["stats"]
	if !ok {
		t.Fatal("parity artifact missing 'stats' command")
	}

	checkFlagParity(t, "stats", extractFlags(statsCmd), parityStats.Flags)
}

// TestCLIParityDebugCommand validates the debug command flags against the parity artifact.
func TestCLIParityDebugCommand(t *testing.T) {
	artifact := loadParityArtifact(t)
	debugCmd := DebugCommand()

	parityDebug, ok := artifact.Commands["debug"]
	if !ok {
		t.Fatal("parity artifact missing 'debug' command")
	}

	for _, subCmd := range debugCmd.Subcommands {
		paritySubCmd, ok := parityDebug.Subcommands[subCmd.Name]
		if !ok {
			t.Errorf("CLI has debug subcommand %q but it is not in parity artifact", subCmd.Name)
			continue
		}
		checkFlagParity(t, "debug "+subCmd.Name, extractFlags(subCmd), paritySubCmd.Flags)
	}

	for subName := range parityDebug.Subcommands {
		found := false
		for _, subCmd := range debugCmd.Subcommands {
			if subCmd.Name == subName {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("parity artifact declares debug subcommand %q but it does not exist in CLI", subName)
		}
	}
}

// TestCLIParityVersionCommand validates the version command flags against the parity artifact.
func TestCLIParityVersionCommand(t *testing.T) {
	artifact := loadParityArtifact(t)
	versionCmd := VersionCommand("")

	parityVersion, ok := artifact.Commands["version"]
	if !ok {
		t.Fatal("parity artifact missing 'version' command")
	}

	checkFlagParity(t, "version", extractFlags(versionCmd), parityVersion.Flags)
}

// TestCLIParityRunIdentityContract validates the run identity rules are
// correctly documented.
func TestCLIParityRunIdentityContract(t *testing.T) {
	artifact := loadParityArtifact(t)

	parityRun, ok := artifact.Commands["run"]
	if !ok {
		t.Fatal("parity artifact missing 'run' command")
	}

	parentFlag, ok := parityRun.Flags["parent-run-id"]
	if !ok {
		t.Fatal("parity artifact missing 'parent-run-id' flag")
	}

	if !strings.Contains(strings.ToLower(parentFlag.Validation), "attempt") {
		t.Error("--parent-run-id validation should mention the attempt requirement")
	}

	if len(parentFlag.DependsOn) == 0 || parentFlag.DependsOn[0] != "attempt" {
		t.Error("--parent-run-id should depend on --attempt")
	}

	attemptFlag, ok := parityRun.Flags["attempt"]
	if !ok {
		t.Fatal("parity artifact missing 'attempt' flag")
	}

	if def, isNum := attemptFlag.Default.(float64); !isNum || def != 1 {
		t.Errorf("--attempt default should be 1, got %v", attemptFlag.Default)
	}
}

// TestCLIParityLifecycleContract validates the report engine modes are
// correctly documented.
func TestCLIParityLifecycleContract(t *testing.T) {
	artifact := loadParityArtifact(t)

	parityRun, ok := artifact.Commands["run"]
	if !ok {
		t.Fatal("parity artifact missing 'run' command")
	}

	lifecycleFlag, ok := parityRun.Flags["lifecycle"]
	if !ok {
		t.Fatal("parity artifact missing 'lifecycle' flag")
	}

	for _, mode := range []string{"strict", "buffered", "noop"} {
		if !strings.Contains(lifecycleFlag.Validation, mode) {
			t.Errorf("--lifecycle validation should list mode %q", mode)
		}
	}

	flushFlag, ok := parityRun.Flags["flush-count"]
	if !ok {
		t.Fatal("parity artifact missing 'flush-count' flag")
	}
	if len(flushFlag.DependsOn) == 0 || flushFlag.DependsOn[0] != "lifecycle" {
		t.Error("--flush-count should depend on --lifecycle")
	}
}

// TestCLIParityReportContract validates the report flag documents the
// stderr convention.
func TestCLIParityReportContract(t *testing.T) {
	artifact := loadParityArtifact(t)

	parityRun, ok := artifact.Commands["run"]
	if !ok {
		t.Fatal("parity artifact missing 'run' command")
	}

	reportFlag, ok := parityRun.Flags["report"]
	if !ok {
		t.Fatal("parity artifact missing 'report' flag")
	}

	if !strings.Contains(strings.ToLower(reportFlag.Notes), "stderr") {
		t.Error("--report notes should document the \"-\" stderr convention")
	}

	if !strings.Contains(strings.ToLower(reportFlag.Notes), "exit code") {
		t.Error("--report notes should state that report failures never change the exit code")
	}
}

// getFlagType returns the type string for a cli.Flag.
func getFlagType(f cli.Flag) string {
	switch f.(type) {
	case *cli.StringFlag:
		return "string"
	case *cli.StringSliceFlag:
		return "stringSlice"
	case *cli.IntFlag:
		return "int"
	case *cli.Int64Flag:
		return "int64"
	case *cli.BoolFlag:
		return "bool"
	case *cli.Float64Flag:
		return "float64"
	case *cli.DurationFlag:
		return "duration"
	default:
		return "unknown"
	}
}

// isFlagRequired returns whether a cli.Flag is required.
func isFlagRequired(f cli.Flag) bool {
	switch tf := f.(type) {
	case *cli.StringFlag:
		return tf.Required
	case *cli.StringSliceFlag:
		return tf.Required
	case *cli.IntFlag:
		return tf.Required
	case *cli.Int64Flag:
		return tf.Required
	case *cli.BoolFlag:
		return tf.Required
	case *cli.DurationFlag:
		return tf.Required
	default:
		return false
	}
}
