// Command goportal runs and inspects a portal session.
//
//	goportal serve --mock-backend
//	goportal --redis-addr localhost:6379 --api-url http://backend login --email a@b.c
//	goportal whoami
//	goportal routes
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
