package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"

	contentapi "github.com/ociworks/distkit/pkg/content/api"
	"github.com/ociworks/distkit/pkg/content/fs/uploadpurger"
)

func init() {
	c := cli.AddTo(App, &PurgeUploads{})
	c.LogFormat = "text"
}

type PurgeUploads struct {
	cli.C `name:"purge-uploads"`
	otel.Otel

	contentapi.NamespaceProvider

	uploadpurger.Purger
}
