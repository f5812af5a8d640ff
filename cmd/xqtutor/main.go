package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "xqtutor:", err)
		os.Exit(1)
	}
}
