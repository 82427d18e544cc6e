package main

import (
	"fmt"
	"os"

	"github.com/zapikart/shopify-mpwa/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "cod relay: %v\n", err)
		os.Exit(1)
	}
}
