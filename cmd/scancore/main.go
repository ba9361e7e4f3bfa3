// Command scancore manages frame-indexed experiment datasets from the
// command line: inspecting stored datasets, removing frames, concatenating
// recordings and extracting analysis units.
package main

func main() {
	execute()
}
