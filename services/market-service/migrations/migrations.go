// Package migrations embeds the market-service schema for goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
