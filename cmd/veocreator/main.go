// veocreator creates and verifies signed VERS Encapsulated Objects.
package main

import "github.com/information-sharing-networks/veogen/internal/cli"

func main() {
	cli.Execute()
}
