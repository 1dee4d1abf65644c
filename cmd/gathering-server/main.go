// Command gathering-server runs the highland games registration and results backend.
package main

func main() {
	Execute()
}
