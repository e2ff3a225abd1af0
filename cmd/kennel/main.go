// Command kennel browses the dog breed catalog and keeps favorites, photo
// notes and settings in a local store.
package main

import "github.com/mesh-intelligence/kennel/internal/cli"

func main() {
	cli.Execute()
}
