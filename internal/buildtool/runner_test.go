package buildtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the build tool runner:
// - installed libraries decode from the flat list and the storage-keyed object
// - RAM and Flash usage are parsed from the checkprogsize summary on either stream
// - a very long compiler line before the summary does not hide it, CRLF endings are accepted
// - project metadata is read from top-level "includes" or the environment key
// - a failing command, bad JSON or a missing executable degrade to empty data
// - a missing executable surfaces ErrToolNotFound from run

// fakeTool returns a CommandFunc that re-executes the test binary as a fake
// build tool running the given scenario.
func fakeTool(scenario string) CommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "FAKE_SCENARIO=" + scenario}
		return cmd
	}
}

// TestHelperProcess is the fake pio executable.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no command specified")
		os.Exit(2)
	}

	scenario := os.Getenv("FAKE_SCENARIO")
	if scenario == "fail" {
		fmt.Fprintln(os.Stderr, "Error: Unknown environment")
		os.Exit(1)
	}
	if scenario == "garbage" {
		fmt.Println("this is not json")
		os.Exit(0)
	}

	cmd := strings.Join(args[1:], " ")
	switch {
	case strings.HasPrefix(cmd, "lib list"):
		if scenario == "legacy" {
			fmt.Println(`{"/home/u/.platformio/lib": [{"name": "FastLED", "version": "3.6.0"}], "/proj/.pio/libdeps": [{"name": "TFT_eSPI", "version": "2.5.43"}]}`)
		} else {
			fmt.Println(`[{"name": "TFT_eSPI", "version": "2.5.43", "description": "TFT library"}, {"name": "FastLED", "version": "3.6.0"}]`)
		}
	case strings.HasPrefix(cmd, "run --target checkprogsize"):
		fmt.Println("Checking size .pio/build/esp32-s3-devkitc-1/firmware.elf")
		out := os.Stdout
		if scenario == "stderr" {
			out = os.Stderr
		}
		fmt.Fprintln(out, "RAM:   [=         ]  14.2% (used 46548 bytes from 327680 bytes)")
		fmt.Fprintln(out, "Flash: [===       ]  27.9% (used 935617 bytes from 3342336 bytes)")
	case strings.HasPrefix(cmd, "project metadata"):
		if scenario == "by-env" {
			fmt.Println(`{"esp32-s3-devkitc-1": {"includes": {"build": ["/p/include", "/p/src"], "toolchain": ["/t/include"]}}}`)
		} else {
			fmt.Println(`{"includes": {"build": ["/p/include"], "compatlib": ["/l/a", "/l/b"]}}`)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	os.Exit(0)
}

func TestInstalledLibraries(t *testing.T) {
	t.Parallel()

	r := NewRunner("pio", t.TempDir(), WithCommandFunc(fakeTool("")))
	libs := r.InstalledLibraries(context.Background())
	require.Len(t, libs, 2)
	assert.Equal(t, InstalledLibrary{Name: "TFT_eSPI", Version: "2.5.43", Description: "TFT library"}, libs[0])
	assert.Equal(t, "FastLED", libs[1].Name)

	legacy := NewRunner("pio", "", WithCommandFunc(fakeTool("legacy")))
	libs = legacy.InstalledLibraries(context.Background())
	require.Len(t, libs, 2)
	// storage directories are visited in sorted order
	assert.Equal(t, "FastLED", libs[0].Name)
	assert.Equal(t, "TFT_eSPI", libs[1].Name)
}

func TestMemoryUsage(t *testing.T) {
	t.Parallel()

	for _, scenario := range []string{"", "stderr"} {
		r := NewRunner("pio", "", WithCommandFunc(fakeTool(scenario)))
		usage := r.MemoryUsage(context.Background(), "esp32-s3-devkitc-1")

		require.NotNil(t, usage.RAM, scenario)
		require.NotNil(t, usage.Flash, scenario)
		assert.Equal(t, Usage{Used: 46548, Total: 327680, Percentage: 14.2}, *usage.RAM)
		assert.Equal(t, Usage{Used: 935617, Total: 3342336, Percentage: 27.9}, *usage.Flash)
		assert.False(t, usage.Empty())
	}
}

func TestParseMemoryUsage_LongLines(t *testing.T) {
	t.Parallel()

	out := strings.Repeat("x", 70*1024) + "\n" +
		"RAM:   [=         ]  14.2% (used 46548 bytes from 327680 bytes)\r\n" +
		"Flash: [===       ]  27.9% (used 935617 bytes from 3342336 bytes)\r\n"

	usage := parseMemoryUsage([]byte(out))
	require.NotNil(t, usage.RAM)
	require.NotNil(t, usage.Flash)
	assert.Equal(t, int64(46548), usage.RAM.Used)
	assert.Equal(t, int64(3342336), usage.Flash.Total)
}

func TestProjectMetadata(t *testing.T) {
	t.Parallel()

	r := NewRunner("pio", "", WithCommandFunc(fakeTool("")))
	md := r.ProjectMetadata(context.Background(), "esp32-s3-devkitc-1")
	assert.Len(t, md.Includes["build"], 1)
	assert.Len(t, md.Includes["compatlib"], 2)

	r = NewRunner("pio", "", WithCommandFunc(fakeTool("by-env")))
	md = r.ProjectMetadata(context.Background(), "esp32-s3-devkitc-1")
	assert.Len(t, md.Includes["build"], 2)
	assert.Len(t, md.Includes["toolchain"], 1)
}

func TestDegradesToEmpty(t *testing.T) {
	t.Parallel()

	for _, scenario := range []string{"fail", "garbage"} {
		r := NewRunner("pio", "", WithCommandFunc(fakeTool(scenario)))
		ctx := context.Background()

		assert.Empty(t, r.InstalledLibraries(ctx), scenario)
		assert.NotNil(t, r.InstalledLibraries(ctx), scenario)
		assert.True(t, r.MemoryUsage(ctx, "").Empty(), scenario)
		md := r.ProjectMetadata(ctx, "esp32-s3-devkitc-1")
		assert.NotNil(t, md.Includes, scenario)
		assert.Empty(t, md.Includes, scenario)
	}
}

func TestMissingTool(t *testing.T) {
	t.Parallel()

	r := NewRunner("fwscan-no-such-build-tool", "")
	_, _, err := r.run(context.Background(), "lib", "list")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))

	assert.Empty(t, r.InstalledLibraries(context.Background()))
	assert.True(t, r.MemoryUsage(context.Background(), "").Empty())
}

func TestNewRunner_Defaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTool, NewRunner("", "").Tool())
	assert.Equal(t, "platformio", NewRunner("platformio", "").Tool())
}
