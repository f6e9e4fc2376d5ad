package main

import (
	"github.com/jessevdk/go-flags"

	"github.com/i2y/mcptime/configs"
)

// Options is the command line. Struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config        string `short:"c" long:"config" description:"YAML configuration file" value-name:"PATH"`
	Host          string `long:"host" description:"Host to bind the HTTP server to" value-name:"HOST"`
	Port          int    `short:"p" long:"port" description:"Port to listen on" value-name:"PORT"`
	Transport     string `short:"t" long:"transport" description:"Transport to serve" choice:"sse" choice:"stdio"`
	LocalTimezone string `long:"local-timezone" description:"Override the local timezone (IANA name)" value-name:"ZONE"`
	AuthToken     string `long:"auth-token" description:"Require this bearer token on MCP endpoints" value-name:"TOKEN"`
	LogLevel      string `long:"log-level" description:"Logging level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	Version       bool   `short:"v" long:"version" description:"Print the version and exit"`
}

// parseOptions parses args and reports the flags that were set explicitly,
// so unset flags never mask environment or file settings.
func parseOptions(args []string) (*Options, configs.Overrides, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "mcptime"
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, configs.Overrides{}, err
	}

	isSet := func(name string) bool {
		opt := parser.FindOptionByLongName(name)
		return opt != nil && opt.IsSet()
	}

	var o configs.Overrides
	if isSet("config") {
		o.ConfigFilePath = &opts.Config
	}
	if isSet("host") {
		o.Host = &opts.Host
	}
	if isSet("port") {
		o.Port = &opts.Port
	}
	if isSet("transport") {
		o.Transport = &opts.Transport
	}
	if isSet("local-timezone") {
		o.LocalTimezone = &opts.LocalTimezone
	}
	if isSet("auth-token") {
		o.AuthToken = &opts.AuthToken
	}
	if isSet("log-level") {
		o.LogLevel = &opts.LogLevel
	}
	return opts, o, nil
}
