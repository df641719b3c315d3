package main

import (
	"encoding/json"

	"github.com/pmsm/phpboot/internal/phpboot"
)

type schemaCmd struct{}

func (c *schemaCmd) Run(ctx *runContext) error {
	encoder := json.NewEncoder(ctx.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(phpboot.JSONSchema())
}
