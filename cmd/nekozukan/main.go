// Command nekozukan is the terminal client for the cat photo feed.
package main

import (
	"nekozukan/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
