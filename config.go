package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/objbus/objbus/wire"
)

// serveConfig holds the serve command's settings. Environment variables
// (OBJBUS_BIND, OBJBUS_STORE, OBJBUS_DATA_DIR, OBJBUS_PAYLOAD,
// OBJBUS_ALLOW_ORIGIN) provide the defaults, flags override them.
type serveConfig struct {
	Bind        string `envconfig:"BIND" default:"0.0.0.0:8090"`
	Store       string `envconfig:"STORE" default:"persist"`
	DataDir     string `envconfig:"DATA_DIR"`
	Payload     string `envconfig:"PAYLOAD" default:"json"`
	AllowOrigin string `envconfig:"ALLOW_ORIGIN"`
}

func loadServeConfig(options Options) (serveConfig, error) {
	var config serveConfig
	if err := envconfig.Process("objbus", &config); err != nil {
		return config, err
	}
	if options.Serve.Bind != "" {
		config.Bind = options.Serve.Bind
	}
	if options.Serve.Store != "" {
		config.Store = options.Serve.Store
	}
	if options.Serve.DataDir != "" {
		config.DataDir = options.Serve.DataDir
	}
	if options.Serve.Payload != "" {
		config.Payload = options.Serve.Payload
	}
	if options.Serve.AllowOrigin != "" {
		config.AllowOrigin = options.Serve.AllowOrigin
	}
	return config, nil
}

// payloadCodec maps a codec name to the wire codec it names.
func payloadCodec(name string) (wire.Codec, error) {
	switch name {
	case "", "json":
		return wire.JSON(), nil
	case "cbor":
		return wire.CBOR()
	}
	return nil, fmt.Errorf("unknown payload encoding: %q", name)
}
