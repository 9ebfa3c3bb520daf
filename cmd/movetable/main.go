// Command movetable dumps the move-index table, one "index uci" line per
// move, so external training code can assert it agrees with this process's
// enumeration.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pawnstorm/game"
)

var outPath = flag.String("path", "move_table.txt", "file to write the table to")

func main() {
	flag.Parse()

	f, err := os.OpenFile(*outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	table := game.Moves()
	for i := 0; i < table.Size(); i++ {
		k, _ := table.At(i)
		if _, err := fmt.Fprintf(w, "%d %s\n", i, k.UCI()); err != nil {
			log.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d moves to %s", table.Size(), *outPath)
}
