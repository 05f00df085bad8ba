package main

import (
	"os"

	"github.com/blackwell-systems/reposcope/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
