package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"

	contentapi "github.com/ociworks/distkit/pkg/content/api"
	"github.com/ociworks/distkit/pkg/content/fs/uploadpurger"
	"github.com/ociworks/distkit/pkg/uploadsession"
)

func init() {
	cli.AddTo(Serve, &Registry{})
}

// Content registry
type Registry struct {
	cli.C `component:"registry"`
	otel.Otel

	contentapi.NamespaceProvider

	// in-process upload session bookkeeping
	Sessions uploadsession.Manager

	// sweeps staged uploads abandoned across restarts
	Purger uploadpurger.Purger
}
