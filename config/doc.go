// Package config loads the docqa YAML configuration file.
//
// A missing file yields Default. Fields left out of a file keep their
// default values, and Validate rejects settings the pipeline cannot run with.
package config
