package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/rapidaid-io/rapidaid/cmd/rapidaid-dispatch/app"
)

func main() {
	app.NewApp().Run()
}
