// Command kotelctl controls a pellet boiler controller over its WebSocket command channel.
package main

func main() {
	Execute()
}
