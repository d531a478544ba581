// cmd/hybridize/commands/cache.go
package commands

import (
	"flag"
	"fmt"
	"strings"

	"hybridize/internal/cache"
)

// CacheCommand inspects or evicts entries from the SQL analysis cache.
func CacheCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: hybridize cache <info|evict> [options]")
	}
	sub := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("cache "+sub, flag.ExitOnError)
	cacheDSN := fs.String("cache", "sqlite3:./hybridize.db", `cache DSN as "driver:dsn"`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	driver, dsn, ok := strings.Cut(*cacheDSN, ":")
	if !ok {
		return fmt.Errorf("invalid -cache value %q, expected driver:dsn", *cacheDSN)
	}
	store, err := cache.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	switch sub {
	case "info":
		n, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("%d cached analyses\n", n)
		return nil
	case "evict":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: hybridize cache evict <hash> [options]")
		}
		removed, err := store.Evict(fs.Arg(0))
		if err != nil {
			return err
		}
		if removed {
			fmt.Println("evicted")
		} else {
			fmt.Println("no entry found for that hash")
		}
		return nil
	default:
		return fmt.Errorf("unknown cache subcommand %q (want info or evict)", sub)
	}
}
