// Command tinkers runs PHP and JavaScript snippets through the locally
// installed interpreters and keeps a small library of named snippets.
package main

func main() {
	Execute()
}
