// Command validate-yaml checks mock upstream fixtures: each file must parse
// as a statistics snapshot with no negative counts.
package main

import (
	"fmt"
	"os"

	"github.com/blockedby/regstats/internal/mockupstream"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No files to check.")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		snap, err := mockupstream.LoadFixture(path)
		if err != nil {
			fmt.Printf("❌ Invalid fixture %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✅ %s is valid (%d users, %d categories)\n", path, snap.Total.AllUsers, len(snap.Directions))
	}

	if failed {
		os.Exit(1)
	}
}
