// cmd/hybridize/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"hybridize/cmd/hybridize/commands"
)

const VERSION = "1.0.0"

var (
	BuildDate = time.Now().Format("2006-01-02")
	GitCommit = "unknown"
)

// Command aliases mapping
var commandAliases = map[string]string{
	"a": "analyze",
	"w": "watch",
	"c": "cache",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
		args[0] = alias
	}

	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		if len(args) > 1 {
			showCommandHelp(args[1])
		} else {
			showUsage()
		}
		return
	}

	if cmd == "--version" || cmd == "-v" || cmd == "version" {
		showVersion()
		return
	}

	switch cmd {
	case "analyze":
		if err := commands.AnalyzeCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "watch":
		if err := commands.WatchCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	case "cache":
		if err := commands.CacheCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	suggestCommand(cmd)
}

func showUsage() {
	fmt.Println("hybridize - C/C++ to MPI/OpenMP source-to-source parallelizer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hybridize analyze <file.cpp> [-o out.cpp] [-cache dsn]   Parallelize a translation unit  (alias: a)")
	fmt.Println("  hybridize watch <file.cpp> [-addr :8787]                 Serve live diagnostics over WebSocket on re-edit (alias: w)")
	fmt.Println("  hybridize cache <info|evict> [-cache dsn] [hash]         Inspect or evict the analysis cache (alias: c)")
	fmt.Println()
	fmt.Println("Help:")
	fmt.Println("  hybridize help <command>      Show detailed help for a command")
	fmt.Println("  hybridize --version           Show version information")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  hybridize analyze kernel.cpp -o kernel.hybrid.cpp")
	fmt.Println("  hybridize a kernel.cpp                 # emits to stdout, no cache")
	fmt.Println("  hybridize watch kernel.cpp -addr :9000")
	fmt.Println("  hybridize cache info")
}

func showVersion() {
	fmt.Printf("hybridize %s\n", VERSION)
	fmt.Printf("Build Date:    %s\n", BuildDate)
	if gitCmd, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		GitCommit = strings.TrimSpace(string(gitCmd))
	}
	if GitCommit != "unknown" {
		fmt.Printf("Git Commit:    %s\n", GitCommit)
	}
	fmt.Println()
	fmt.Println("Pipeline: C1 type mapping -> C2 globals -> C3 function analysis ->")
	fmt.Println("          C4 loop analysis -> C5 main extraction -> C6 scheduling -> C7 emission")
}

// suggestCommand suggests similar commands when an unknown command is entered.
func suggestCommand(cmd string) {
	allCommands := []string{"analyze", "watch", "cache", "help", "version"}

	fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n", cmd)

	suggestions := findSimilarCommands(cmd, allCommands, 3)
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\nDid you mean one of these?\n")
		for _, suggestion := range suggestions {
			alias := ""
			for a, fullCmd := range commandAliases {
				if fullCmd == suggestion {
					alias = fmt.Sprintf(" (alias: %s)", a)
					break
				}
			}
			fmt.Fprintf(os.Stderr, "  hybridize %s%s\n", suggestion, alias)
		}
	}

	fmt.Fprintf(os.Stderr, "\nRun 'hybridize help' to see all available commands\n")
	os.Exit(1)
}

// findSimilarCommands finds commands similar to the input using Levenshtein distance.
func findSimilarCommands(input string, commands []string, maxDistance int) []string {
	var similar []string
	for _, cmd := range commands {
		if levenshteinDistance(input, cmd) <= maxDistance {
			similar = append(similar, cmd)
		}
	}
	return similar
}

// levenshteinDistance calculates the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(s1)][len(s2)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// showCommandHelp shows detailed help for a specific command.
func showCommandHelp(command string) {
	if alias, ok := commandAliases[command]; ok {
		command = alias
	}

	help := map[string]string{
		"analyze": `hybridize analyze - Parallelize a translation unit

USAGE:
  hybridize analyze <file.cpp> [options]
  hybridize a <file.cpp>                  # Using alias

OPTIONS:
  -o <file>        Write the emitted MPI/OpenMP source here (default: stdout)
  -report <file>   Write the diagnostic report here (default: stderr)
  -cache <dsn>     SQL cache DSN, e.g. "sqlite3:hybridize.db" (default: none, caching disabled)
  -no-cache        Skip the cache entirely, even if -cache is set

DESCRIPTION:
  Runs the full C1-C7 pipeline over a single C/C++ source file and emits an
  MPI/OpenMP-hybridized translation unit alongside a diagnostic report
  describing every loop's parallelization decision.

EXAMPLES:
  hybridize analyze kernel.cpp
  hybridize a kernel.cpp -o kernel.hybrid.cpp -cache sqlite3:./hybridize.db`,

		"watch": `hybridize watch - Serve live diagnostics over WebSocket

USAGE:
  hybridize watch <file.cpp> [options]
  hybridize w <file.cpp>                  # Using alias

OPTIONS:
  -addr <addr>       Listen address (default: ":8787")
  -interval <dur>    Poll interval, e.g. "500ms" (default: "1s")

DESCRIPTION:
  Polls a source file for modifications and re-runs the pipeline on every
  change, broadcasting the emitted output and report to every connected
  WebSocket client at ws://<addr>/.

EXAMPLES:
  hybridize watch kernel.cpp
  hybridize w kernel.cpp -addr :9000 -interval 250ms`,

		"cache": `hybridize cache - Inspect or evict the analysis cache

USAGE:
  hybridize cache info [-cache dsn]
  hybridize cache evict <hash> [-cache dsn]
  hybridize c info                        # Using alias

DESCRIPTION:
  info   prints the number of cached analyses.
  evict  removes one cached analysis by its source hash.

EXAMPLES:
  hybridize cache info -cache sqlite3:./hybridize.db
  hybridize cache evict 9f86d08... -cache sqlite3:./hybridize.db`,
	}

	if helpText, ok := help[command]; ok {
		fmt.Println(helpText)
	} else {
		fmt.Printf("No detailed help available for '%s'\n", command)
		fmt.Println("\nRun 'hybridize help' to see all available commands")
	}
}
