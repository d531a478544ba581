// cmd/hybridize/commands/analyze.go
package commands

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"hybridize/internal/cache"
	"hybridize/internal/pipeline"
)

// AnalyzeCommand runs the full pipeline over one source file and writes the
// emitted translation unit and its diagnostic report, consulting (and
// populating) a SQL cache keyed by source hash when one is configured.
func AnalyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	outPath := fs.String("o", "", "write emitted source here (default: stdout)")
	reportPath := fs.String("report", "", "write the diagnostic report here (default: stderr)")
	cacheDSN := fs.String("cache", "", `cache DSN as "driver:dsn", e.g. "sqlite3:./hybridize.db"`)
	noCache := fs.Bool("no-cache", false, "skip the cache even if -cache is set")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: hybridize analyze <file.cpp> [options]")
	}
	file := fs.Arg(0)

	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	var store *cache.Store
	if *cacheDSN != "" && !*noCache {
		driver, dsn, ok := strings.Cut(*cacheDSN, ":")
		if !ok {
			return fmt.Errorf("invalid -cache value %q, expected driver:dsn", *cacheDSN)
		}
		store, err = cache.Open(driver, dsn)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	hash := cache.HashSource(string(source))
	if store != nil {
		if entry, hit, err := store.Lookup(hash); err != nil {
			return err
		} else if hit {
			return writeResults(*outPath, *reportPath, entry.Output, entry.ReportText)
		}
	}

	output, prog, err := pipeline.Run(string(source), file, nil)
	if err != nil {
		return err
	}
	reportText := prog.Report.Render()

	if store != nil {
		if err := store.Put(hash, file, output, reportText, time.Now().UTC()); err != nil {
			return err
		}
	}

	return writeResults(*outPath, *reportPath, output, reportText)
}

func writeResults(outPath, reportPath, output, reportText string) error {
	if outPath == "" {
		fmt.Print(output)
	} else if err := os.WriteFile(outPath, []byte(output), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if reportPath == "" {
		fmt.Fprint(os.Stderr, reportText)
	} else if err := os.WriteFile(reportPath, []byte(reportText), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", reportPath, err)
	}
	return nil
}
