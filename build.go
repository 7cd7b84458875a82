//go:build ignore

// build.go - Impedance Report build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, impedance-report, seal-credentials, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "impedancecli"

var (
	distDir = "dist"

	executables = []string{"impedance-report", "seal-credentials"}

	releasePlatforms = []struct{ goos, goarch string }{
		{"linux", "amd64"},
		{"windows", "amd64"},
		{"darwin", "arm64"},
	}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	fmt.Println(colorCyan + "=== Impedance Report - Build ===" + colorReset)
	startTime := time.Now()

	var err error
	switch *target {
	case "all":
		for _, name := range executables {
			if err = buildExecutable(name, runtime.GOOS, runtime.GOARCH, *verbose); err != nil {
				break
			}
		}
	case "impedance-report", "seal-credentials":
		err = buildExecutable(*target, runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = run(*verbose, "go", "test", "./...")
	case "clean":
		printInfo("Removing " + distDir)
		err = os.RemoveAll(distDir)
	case "release":
		err = buildRelease(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func buildExecutable(name, goos, goarch string, verbose bool) error {
	out := filepath.Join(distDir, goos+"-"+goarch, name)
	if goos == "windows" {
		out += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s for %s/%s", name, goos, goarch))

	ldflags := fmt.Sprintf("-s -w -X %s/internal/app.BuildTime=%s", module, time.Now().UTC().Format(time.RFC3339))
	cmd := exec.Command("go", "build", "-trimpath", "-ldflags", ldflags, "-o", out, "./cmd/"+name)
	cmd.Env = append(os.Environ(), "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	return runCmd(cmd, verbose)
}

func buildRelease(verbose bool) error {
	for _, p := range releasePlatforms {
		for _, name := range executables {
			if err := buildExecutable(name, p.goos, p.goarch, verbose); err != nil {
				return fmt.Errorf("%s %s/%s: %w", name, p.goos, p.goarch, err)
			}
		}
	}
	return nil
}

func run(verbose bool, name string, args ...string) error {
	return runCmd(exec.Command(name, args...), verbose)
}

func runCmd(cmd *exec.Cmd, verbose bool) error {
	if verbose {
		printInfo(strings.Join(cmd.Args, " "))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all               Build both executables for this platform (default)")
	fmt.Println("  impedance-report  Build the weekly report job")
	fmt.Println("  seal-credentials  Build the credentials sealing tool")
	fmt.Println("  test              Run all tests")
	fmt.Println("  clean             Remove the dist directory")
	fmt.Println("  release           Cross-compile for linux, windows and darwin")
}
