// Command scenedemo builds a small scene on the recording backend, draws it
// with a thread manager and prints the submitted command trace.
package main

func main() {
	Execute()
}
