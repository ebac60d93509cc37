// Package boiler is the application layer of the pellet boiler controller protocol.
//
// It defines the device's binary records (status, statistics, manual control, fuel changes),
// turns their raw integers into typed values and exposes every device command as a method of
// Controller. A Controller owns an exchange.Client; Run keeps status and statistics fresh by
// polling them, the same way the device's own web page does.
package boiler
