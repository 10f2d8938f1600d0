// Package main is the entry point for the coursesync CLI.
package main

func main() {
	Execute()
}
