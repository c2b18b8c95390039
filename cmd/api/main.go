package main

import (
	"go.uber.org/fx"

	"github.com/botica-labs/botica/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
