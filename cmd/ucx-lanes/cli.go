package main

import "flag"

// Options holds CLI options for the lane inspector.
type Options struct {
	ConfigPath string
	Format     string
	Serve      bool
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("ucx-lanes", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Format, "format", "json", "Report format: json or cbor")
	fs.BoolVar(&opts.Serve, "serve", false, "Listen on the configured lanes and echo probe frames")
	_ = fs.Parse(args)
	return opts
}
