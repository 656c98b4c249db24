// Package config loads env-tagged configuration structs from the process
// environment, with an optional .env file for local development.
package config
