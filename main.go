package main

import (
	"embed"
	"fmt"
	"os"
)

var (
	version = "dev"
)

//go:embed templates/*.html
var templatesFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
