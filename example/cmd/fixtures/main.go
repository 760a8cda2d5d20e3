// Command fixtures writes an SQL file with sessions, bookings, and calendar overrides for a
// range of days, to load a local database with realistic availability data.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

const (
	defaultOutputDir  = "testutil/fixtures"
	defaultOutputFile = "availability.sql"
)

func main() {
	from := flag.String("from", availability.DateOf(time.Now(), time.UTC).String(), "first day, 2006-01-02")
	days := flag.Int("days", 120, "number of days to generate")
	seed := flag.Uint64("seed", 1, "random seed, same seed same data")
	output := flag.String("out", "", "output file, defaults to "+filepath.Join(defaultOutputDir, defaultOutputFile))
	flag.Parse()

	if err := run(*from, *days, *seed, *output); err != nil {
		fmt.Fprintf(os.Stderr, "generating fixture data failed: %v\n", err)
		os.Exit(1)
	}
}

func run(from string, days int, seed uint64, output string) error {
	start, err := availability.ParseDate(from)
	if err != nil {
		return err
	}

	if days < 1 {
		return fmt.Errorf("days must be positive, got %d", days)
	}

	if output == "" {
		projectRoot, rootErr := findProjectRoot()
		if rootErr != nil {
			return fmt.Errorf("failed to find project root: %w", rootErr)
		}

		output = filepath.Join(projectRoot, defaultOutputDir, defaultOutputFile)
	}

	fixtures := GenerateFixtures(start, days, seed)

	content, err := BuildSQL(fixtures)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err = os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write SQL file: %w", err)
	}

	fmt.Printf("generated %d bookings and %d overrides for %d days into %s\n",
		len(fixtures.Bookings), len(fixtures.Overrides), days, output)

	return nil
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, statErr := os.Stat(filepath.Join(dir, "go.mod")); statErr == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}

		dir = parent
	}
}
