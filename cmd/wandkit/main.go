package main

import (
	"os"

	"github.com/cshum/wandkit/config"
	"github.com/cshum/wandkit/config/awsconfig"
	"github.com/cshum/wandkit/config/gcloudconfig"
	"github.com/cshum/wandkit/server"
)

func main() {
	if srv := newServer(os.Args[1:]...); srv != nil {
		srv.Run()
	}
}

func newServer(args ...string) *server.Server {
	return config.CreateServer(args, awsconfig.WithAWS, gcloudconfig.WithGCloud)
}
