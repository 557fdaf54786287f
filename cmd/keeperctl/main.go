package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/audiokeeper/internal/ctl"
)

func main() {
	err := ctl.Run(context.Background(), os.Args[1:], ctl.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if errors.Is(err, ctl.ErrUsage) {
		os.Exit(2)
	}
	os.Exit(1)
}
