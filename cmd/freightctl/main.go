// Command freightctl is the command-line front end of the freight engine.
package main

func main() {
	Execute()
}
