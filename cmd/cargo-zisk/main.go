// Idiomatic entrypoint for the Cobra CLI; delegates to the root command in cmd/cargo-zisk/root.go.
package main

func main() {
	Execute()
}
