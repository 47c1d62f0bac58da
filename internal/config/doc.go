// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// ClientConfig configures cmd/hxclient; DemoConfig configures cmd/wsdemo.
package config
