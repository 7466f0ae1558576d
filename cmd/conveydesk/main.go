package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	_ "golang.org/x/crypto/x509roots/fallback" // CA bundle for minimal container images
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		// failed API calls have already been printed as an envelope
		if !errors.Is(err, errRequestFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
