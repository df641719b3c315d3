package main

import (
	"github.com/alecthomas/kong"
	"github.com/pmsm/phpboot/internal/phpboot"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"
)

var platformCompleter = complete.PredictSet(phpboot.KnownPlatforms...)

func runCompletion(parser *kong.Kong) {
	kongplete.Complete(parser,
		kongplete.WithPredictor("platform", platformCompleter),
	)
}
